package providers

import (
	_ "github.com/stake-plus/crisistruth/src/ai/anthropic"
	_ "github.com/stake-plus/crisistruth/src/ai/openai"
)

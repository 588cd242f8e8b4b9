package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Claim lifecycle states. Terminal states mirror factcheck.Status.
const (
	ClaimPending    = "pending"
	ClaimProcessing = "processing"
	ClaimVerified   = "verified"
	ClaimDisputed   = "disputed"
	ClaimUnverified = "unverified"
)

// Submitted claims
type Claim struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Text          string         `gorm:"type:text;not null" json:"text"`
	UserID        string         `gorm:"size:128;index;not null" json:"user_id"`
	Status        string         `gorm:"size:16;index;not null;default:pending" json:"status"`
	Category      *string        `gorm:"size:64" json:"category,omitempty"`
	CrisisID      *string        `gorm:"size:36;index" json:"crisis_id,omitempty"`
	Tags          string         `gorm:"size:255" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Verifications []Verification `gorm:"foreignKey:ClaimID" json:"verifications,omitempty"`
}

func (c *Claim) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Verification results, one row per verify run
type Verification struct {
	ID                    string               `gorm:"primaryKey;size:36" json:"id"`
	ClaimID               string               `gorm:"size:36;index;not null" json:"claim_id"`
	Status                string               `gorm:"size:16;not null" json:"status"`
	ConfidenceScore       int                  `gorm:"not null" json:"confidence_score"`
	Summary               string               `gorm:"type:text" json:"summary"`
	Method                string               `gorm:"size:16" json:"method"`
	ProcessingTimeMS      int64                `json:"processing_time"`
	EvidenceSupporting    int                  `json:"evidence_supporting"`
	EvidenceContradicting int                  `json:"evidence_contradicting"`
	EvidenceNeutral       int                  `json:"evidence_neutral"`
	CreatedAt             time.Time            `json:"created_at"`
	Sources               []VerificationSource `gorm:"foreignKey:VerificationID" json:"sources,omitempty"`
}

func (v *Verification) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Cited sources per verification
type VerificationSource struct {
	ID             uint64 `gorm:"primaryKey" json:"-"`
	VerificationID string `gorm:"size:36;index;not null" json:"-"`
	Position       int    `json:"-"`
	Title          string `gorm:"size:255" json:"title"`
	URL            string `gorm:"size:512" json:"url"`
	Credibility    int    `json:"credibility"`
	Excerpt        string `gorm:"type:text" json:"excerpt"`
	Type           string `gorm:"size:64" json:"type"`
}

// Community votes, one per (claim, user)
type CommunityVote struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ClaimID   string    `gorm:"size:36;not null;uniqueIndex:idx_vote_claim_user"`
	UserID    string    `gorm:"size:128;not null;uniqueIndex:idx_vote_claim_user;index"`
	Vote      string    `gorm:"size:16;not null"`
	Comment   *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (v *CommunityVote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Crisis events claims can be filed under
type Crisis struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Location    string      `gorm:"size:255" json:"location"`
	Priority    string      `gorm:"size:16;index;default:medium" json:"priority"`
	Status      string      `gorm:"size:16;index;default:active" json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Tags        []CrisisTag `gorm:"foreignKey:CrisisID" json:"-"`
}

func (c *Crisis) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CrisisTag struct {
	ID       uint64 `gorm:"primaryKey"`
	CrisisID string `gorm:"size:36;index;not null"`
	Tag      string `gorm:"size:64;not null"`
}

// Login accounts for the mock credential flow
type Account struct {
	Email        string `gorm:"primaryKey;size:255"`
	PasswordHash string `gorm:"size:255;not null"`
	Name         string `gorm:"size:128"`
	Role         string `gorm:"size:32;not null"`
	CreatedAt    time.Time
}

// Runtime settings overlaying environment config
type Setting struct {
	ID    uint16 `gorm:"primaryKey"`
	Name  string `gorm:"size:64;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// AllModels lists every table for AutoMigrate.
var AllModels = []interface{}{
	&Claim{}, &Verification{}, &VerificationSource{},
	&CommunityVote{}, &Crisis{}, &CrisisTag{},
	&Account{}, &Setting{},
}

package community

import "math"

// ComputeStats tallies votes for one claim. Confidence is
// round((agree/total - disagree/total) * 50 + 50), so unsure votes pull the
// score toward 50 without moving it either way.
func ComputeStats(votes []Vote, userID string) Stats {
	st := NeutralStats()
	for _, v := range votes {
		switch v.Choice {
		case Agree:
			st.AgreeCount++
		case Disagree:
			st.DisagreeCount++
		case Unsure:
			st.UnsureCount++
		default:
			continue
		}
		st.TotalVotes++
		if userID != "" && v.UserID == userID {
			st.UserVote = v.Choice
		}
	}
	if st.TotalVotes == 0 {
		return st
	}

	total := float64(st.TotalVotes)
	ratio := float64(st.AgreeCount)/total - float64(st.DisagreeCount)/total
	st.CommunityConfidence = int(math.Round(ratio*50 + 50))
	return st
}

package rules

import "github.com/kkkhaled/yolel-4/internal/domain/model"

// PairEligible reports whether two uploads may be matched against each
// other: same gender, same age category, both open for voting, and owned by
// different users unless both were seeded by an admin.
func PairEligible(a, b model.Upload) bool {
	if a.ID == b.ID {
		return false
	}
	if a.Gender != b.Gender || a.AgeType != b.AgeType {
		return false
	}
	if !a.IsAllowForVote || !b.IsAllowForVote {
		return false
	}
	if a.OwnerID == b.OwnerID && !(a.IsAdminCreated && b.IsAdminCreated) {
		return false
	}
	return true
}

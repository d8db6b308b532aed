package enums

import "strings"

type AgeType string

const (
	AgeTypeChild    AgeType = "child"
	AgeTypeTeenager AgeType = "teenager"
	AgeTypeYouth    AgeType = "youth"
	AgeTypeOld      AgeType = "old"
)

func ParseAgeType(value string) (AgeType, bool) {
	switch AgeType(strings.ToLower(strings.TrimSpace(value))) {
	case AgeTypeChild:
		return AgeTypeChild, true
	case AgeTypeTeenager:
		return AgeTypeTeenager, true
	case AgeTypeYouth:
		return AgeTypeYouth, true
	case AgeTypeOld:
		return AgeTypeOld, true
	default:
		return "", false
	}
}

package enums

import "strings"

// Choice names the side of a vote a user picked.
type Choice string

const (
	ChoiceImageOne Choice = "imageOne"
	ChoiceImageTwo Choice = "imageTwo"
)

func ParseChoice(value string) (Choice, bool) {
	switch strings.TrimSpace(value) {
	case string(ChoiceImageOne):
		return ChoiceImageOne, true
	case string(ChoiceImageTwo):
		return ChoiceImageTwo, true
	default:
		return "", false
	}
}

package envelope

import "regexp"

// Classification patterns for replies that carry no extractable JSON.
// Each flag is tested independently, case-insensitively, over the full text.
var (
	userStoryPattern     = regexp.MustCompile(`(?i)user story|as a .+?i want.+?so that|story.*:`)
	testCasePattern      = regexp.MustCompile(`(?i)test case|test scenario|given.+?when.+?then|test.*:`)
	devTaskPattern       = regexp.MustCompile(`(?i)development task|dev task|task.*:|implementation|work item.*created|task.*title`)
	clarificationPattern = regexp.MustCompile(`(?i)need.*more.*info|clarification|missing.*detail|please.*provide`)
	saveConfirmPattern   = regexp.MustCompile(`(?i)save.*azure|create.*work.*item|add.*to.*board`)
)

// Classify builds an Envelope from plain text by pattern analysis.
// It is the last stage of the normalization chain and cannot fail: when
// nothing matches, the envelope carries the text with all flags false.
func Classify(text string) Envelope {
	return Envelope{
		Content: text,
		Metadata: Metadata{
			UserStory:             userStoryPattern.MatchString(text),
			TestCase:              testCasePattern.MatchString(text),
			DevTask:               devTaskPattern.MatchString(text),
			NeedsClarification:    clarificationPattern.MatchString(text),
			NeedsSaveConfirmation: saveConfirmPattern.MatchString(text),
		},
	}
}

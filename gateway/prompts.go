package gateway

import (
	"fmt"

	"go.aimuz.me/clearsight/internal/types"
)

// Fixed answers returned in place of backend failures.
const (
	SimplifyFailed = "Error processing text. Please try again."
	SimplifyEmpty  = "Could not generate simplification."
	DescribeFailed = "Error analyzing image."
	DescribeEmpty  = "No description available."
)

// NoGesture is the phrase the sign prompt asks the model to answer with
// when the frame holds no recognisable sign.
const NoGesture = "No gesture detected"

// sameLanguage is used when the target is auto and detection failed.
const sameLanguage = "the same language as the original text"

func simplifyPrompt(text string, level types.ReadingLevel, language string) string {
	return fmt.Sprintf(`You are an accessibility expert.
Rewrite the following text to make it suitable for a %s reading level.
Translate it to %s if it is not already.
Provide a summary first, then the simplified details.

Text to process:
%s`, level, language, text)
}

func describePrompt(language string) string {
	return fmt.Sprintf("Describe this image in detail for a visually impaired user. Language: %s. Focus on spatial layout, objects, and text present.", language)
}

const signPrompt = "Analyze the hand gesture in this image. If it is a recognizable sign language gesture (ASL or common universal), translate it to text. If not, say '" + NoGesture + "'."

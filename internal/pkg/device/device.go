// Package device classifies client devices from their User-Agent header.
package device

import "regexp"

// Family is the mobile OS family of a client.
type Family string

const (
	FamilyUnknown Family = ""
	FamilyIOS     Family = "ios"
	FamilyAndroid Family = "android"
)

// Matching is case-sensitive, the way the tokens appear in real agents.
var (
	iosAgent     = regexp.MustCompile(`iPad|iPhone|iPod`)
	androidAgent = regexp.MustCompile(`Android`)
)

// Detect returns the family for userAgent. iOS tokens win when both match.
func Detect(userAgent string) Family {
	switch {
	case iosAgent.MatchString(userAgent):
		return FamilyIOS
	case androidAgent.MatchString(userAgent):
		return FamilyAndroid
	}
	return FamilyUnknown
}

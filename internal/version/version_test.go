package version

import (
	"regexp"
	"testing"
)

func TestNumberIsSemver(t *testing.T) {
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
	if !semver.MatchString(Number) {
		t.Errorf("Number = %q is not a semantic version", Number)
	}
}

func TestVersionCarriesNumberDigits(t *testing.T) {
	// Version may wrap digits in color codes but must not disagree with
	// Number on content.
	stripped := regexp.MustCompile(`\x1b\[[0-9;]*m`).ReplaceAllString(Version, "")
	if stripped != Number {
		t.Errorf("Version without color = %q, Number = %q", stripped, Number)
	}
}

func TestOverridableMetadata(t *testing.T) {
	// ldflags targets must stay plain package variables.
	orig := GitCommit
	GitCommit = "abc123"
	if GitCommit != "abc123" {
		t.Errorf("GitCommit = %q", GitCommit)
	}
	GitCommit = orig
	_ = GitMessage
	_ = BuildDate
}

package link

import (
	"errors"
	"strings"
	"testing"
)

func TestDescribeUnknownError(t *testing.T) {
	if got := Describe(errors.New("boom")); got != "unknown error" {
		t.Errorf("Describe = %q", got)
	}
}

func TestOpenMissingPort(t *testing.T) {
	_, err := Open("/dev/dso-capture-no-such-port", 0)
	if err == nil {
		t.Fatal("expected an error for a missing port")
	}
	if !strings.Contains(err.Error(), "/dev/dso-capture-no-such-port") {
		t.Errorf("error should name the port: %v", err)
	}
}

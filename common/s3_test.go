package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&smithy.GenericAPIError{Code: "NotFound"}, true},
		{fmt.Errorf("head: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), true},
		{&smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{errors.New("dial tcp: timeout"), false},
	}
	for _, c := range cases {
		if got := IsNotFound(c.err); got != c.want {
			t.Fatalf("IsNotFound(%v) = %v; want %v", c.err, got, c.want)
		}
	}
}

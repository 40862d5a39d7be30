package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "timeout maps to retry message",
			err:  New("command timeout after 30 seconds"),
			want: "The operation took too long to complete. Please try again.",
		},
		{
			name: "permission denied maps to permission message",
			err:  New("bash: permission denied: /etc/shadow"),
			want: "You don't have permission to perform this operation.",
		},
		{
			name: "access denied maps to credentials message",
			err:  New("AccessDenied: access denied for operation"),
			want: "Access denied. Please check your credentials.",
		},
		{
			name: "connection maps to network message",
			err:  New("connection reset by peer"),
			want: "Unable to connect to the service. Please check your network connection.",
		},
		{
			name: "not found maps to resource message",
			err:  ErrInstructionNotFound,
			want: "The requested resource was not found.",
		},
		{
			name: "invalid maps to input message",
			err:  New("invalid username format"),
			want: "The provided input is invalid. Please check and try again.",
		},
		{
			name: "unmatched falls back to raw message",
			err:  New("disk exploded"),
			want: "An error occurred: disk exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}

	t.Run("nil error produces empty string", func(t *testing.T) {
		assert.Empty(t, UserMessage(nil))
	})
}

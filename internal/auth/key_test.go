package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	testCases := []struct {
		name    string
		key     string
		want    Capability
		wantErr bool
	}{
		{
			name: "master key without tier",
			key:  "ticket:read",
			want: Capability{Resource: "ticket", Action: "read", Scope: ScopeAny},
		},
		{
			name: "global tier",
			key:  "ticket:read:global",
			want: Capability{Resource: "ticket", Action: "read", Scope: ScopeGlobal},
		},
		{
			name: "group tier",
			key:  "endpoint:update:group",
			want: Capability{Resource: "endpoint", Action: "update", Scope: ScopeGroup},
		},
		{
			name: "own tier",
			key:  "ticket:delete:own",
			want: Capability{Resource: "ticket", Action: "delete", Scope: ScopeOwn},
		},
		{
			name: "assigned tier",
			key:  "attachment:read:assigned",
			want: Capability{Resource: "attachment", Action: "read", Scope: ScopeAssigned},
		},
		{
			name:    "unknown tier is a parse error not a silent miss",
			key:     "ticket:read:galaxy",
			wantErr: true,
		},
		{
			name:    "empty resource",
			key:     ":read:global",
			wantErr: true,
		},
		{
			name:    "empty action",
			key:     "ticket::global",
			wantErr: true,
		},
		{
			name:    "single part",
			key:     "ticket",
			wantErr: true,
		},
		{
			name:    "too many parts",
			key:     "ticket:read:global:extra",
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKey(tc.key)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedCapability)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCapabilityKeyRoundTrip(t *testing.T) {
	for _, key := range []string{
		"ticket:read",
		"ticket:read:global",
		"endpoint:delete:group",
		"attachment:create:own",
	} {
		parsed, err := ParseKey(key)
		require.NoError(t, err)
		assert.Equal(t, key, parsed.Key())
	}
}

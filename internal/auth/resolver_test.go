package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidenta/incidenta/internal/db/models"
)

func uintPtr(v uint64) *uint64 { return &v }

func testResolver() *Resolver {
	// 10 -> {11}, 11 -> {12}; 20 is a separate root
	return NewResolver(NewHierarchy(mapGroupStore{
		10: {11},
		11: {12},
	}))
}

func principalWith(user models.User, keys ...string) *Principal {
	caps := make([]Capability, 0, len(keys))

	for _, key := range keys {
		parsed, err := ParseKey(key)
		if err != nil {
			panic(err)
		}

		caps = append(caps, parsed)
	}

	return NewPrincipal(user, caps)
}

func TestAllowedTiers(t *testing.T) {
	ctx := context.Background()
	r := testResolver()

	foreign := Record{GroupID: uintPtr(20), CreatedByID: 99}
	inGroup := Record{GroupID: uintPtr(12), CreatedByID: 99}
	ownedByGroup := Record{GroupID: uintPtr(20), OwnerGroupID: uintPtr(11), CreatedByID: 99}
	mine := Record{GroupID: uintPtr(20), CreatedByID: 1}
	assignedToMe := Record{GroupID: uintPtr(20), CreatedByID: 99, AssignedToID: uintPtr(1)}

	member := models.User{ID: 1, GroupID: uintPtr(10)}

	testCases := []struct {
		name   string
		p      *Principal
		action string
		rec    Record
		want   bool
	}{
		{
			name:   "global tier reaches any record",
			p:      principalWith(member, "ticket:read:global"),
			action: ActionRead,
			rec:    foreign,
			want:   true,
		},
		{
			name:   "master key reaches any record",
			p:      principalWith(member, "ticket:read"),
			action: ActionRead,
			rec:    foreign,
			want:   true,
		},
		{
			name:   "group tier matches descendant group",
			p:      principalWith(member, "ticket:read:group"),
			action: ActionRead,
			rec:    inGroup,
			want:   true,
		},
		{
			name:   "group tier matches owner group",
			p:      principalWith(member, "ticket:read:group"),
			action: ActionRead,
			rec:    ownedByGroup,
			want:   true,
		},
		{
			name:   "group tier misses foreign group",
			p:      principalWith(member, "ticket:read:group"),
			action: ActionRead,
			rec:    foreign,
			want:   false,
		},
		{
			name:   "group tier useless without a group",
			p:      principalWith(models.User{ID: 1}, "ticket:read:group"),
			action: ActionRead,
			rec:    inGroup,
			want:   false,
		},
		{
			name:   "own tier matches creator",
			p:      principalWith(member, "ticket:update:own"),
			action: ActionUpdate,
			rec:    mine,
			want:   true,
		},
		{
			name:   "own tier misses other creators",
			p:      principalWith(member, "ticket:update:own"),
			action: ActionUpdate,
			rec:    foreign,
			want:   false,
		},
		{
			name:   "read-own covers assigned to me",
			p:      principalWith(member, "ticket:read:own"),
			action: ActionRead,
			rec:    assignedToMe,
			want:   true,
		},
		{
			name:   "update-own does not cover assigned to me",
			p:      principalWith(member, "ticket:update:own"),
			action: ActionUpdate,
			rec:    assignedToMe,
			want:   false,
		},
		{
			name:   "assigned tier matches assignee for any action",
			p:      principalWith(member, "ticket:update:assigned"),
			action: ActionUpdate,
			rec:    assignedToMe,
			want:   true,
		},
		{
			name:   "tiers compose with OR",
			p:      principalWith(member, "ticket:read:own", "ticket:read:group"),
			action: ActionRead,
			rec:    inGroup,
			want:   true,
		},
		{
			name:   "no capability means no access",
			p:      principalWith(member),
			action: ActionRead,
			rec:    mine,
			want:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Allowed(ctx, tc.p, "ticket", tc.action, tc.rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAllowedPrivacyPrecedesEveryTier(t *testing.T) {
	ctx := context.Background()
	r := testResolver()

	private := Record{GroupID: uintPtr(12), CreatedByID: 99, Private: true}
	privateMine := Record{GroupID: uintPtr(12), CreatedByID: 1, Private: true}
	privateAssigned := Record{GroupID: uintPtr(12), CreatedByID: 99, AssignedToID: uintPtr(1), Private: true}

	member := models.User{ID: 1, GroupID: uintPtr(10)}

	// a global capability does not pierce privacy
	got, err := r.Allowed(ctx, principalWith(member, "ticket:read:global"), "ticket", ActionRead, private)
	require.NoError(t, err)
	assert.False(t, got)

	// neither does a master key
	got, err = r.Allowed(ctx, principalWith(member, "ticket:read"), "ticket", ActionRead, private)
	require.NoError(t, err)
	assert.False(t, got)

	// the creator still needs a capability, but privacy does not block them
	got, err = r.Allowed(ctx, principalWith(member, "ticket:read:own"), "ticket", ActionRead, privateMine)
	require.NoError(t, err)
	assert.True(t, got)

	// same for the assignee
	got, err = r.Allowed(ctx, principalWith(member, "ticket:read:assigned"), "ticket", ActionRead, privateAssigned)
	require.NoError(t, err)
	assert.True(t, got)

	// the superuser is the sole exception
	got, err = r.Allowed(ctx, principalWith(models.User{ID: 2, Superuser: true}), "ticket", ActionRead, private)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestFilterFor(t *testing.T) {
	ctx := context.Background()
	r := testResolver()
	member := models.User{ID: 1, GroupID: uintPtr(10)}

	// superuser: everything, privacy lifted
	spec, err := r.FilterFor(ctx, principalWith(models.User{ID: 2, Superuser: true}), "ticket", ActionRead)
	require.NoError(t, err)
	assert.True(t, spec.Everything)
	assert.True(t, spec.Superuser)

	// global: everything, privacy still applies
	spec, err = r.FilterFor(ctx, principalWith(member, "ticket:read:global"), "ticket", ActionRead)
	require.NoError(t, err)
	assert.True(t, spec.Everything)
	assert.False(t, spec.Superuser)

	// group: descendant closure of the member's group
	spec, err = r.FilterFor(ctx, principalWith(member, "ticket:read:group"), "ticket", ActionRead)
	require.NoError(t, err)
	assert.False(t, spec.Everything)
	assert.ElementsMatch(t, []uint64{10, 11, 12}, spec.GroupIDs)

	// read-own adds the assigned disjunct
	spec, err = r.FilterFor(ctx, principalWith(member, "ticket:read:own"), "ticket", ActionRead)
	require.NoError(t, err)
	assert.True(t, spec.Own)
	assert.True(t, spec.Assigned)

	// update-own does not
	spec, err = r.FilterFor(ctx, principalWith(member, "ticket:update:own"), "ticket", ActionUpdate)
	require.NoError(t, err)
	assert.True(t, spec.Own)
	assert.False(t, spec.Assigned)

	// nothing held: empty spec
	spec, err = r.FilterFor(ctx, principalWith(member), "ticket", ActionRead)
	require.NoError(t, err)
	assert.True(t, spec.Empty())
}

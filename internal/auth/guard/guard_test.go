package guard

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/db/models"
)

func uintPtr(v uint64) *uint64 { return &v }

// fixture holds the shared scope scenario: a two-level group tree, three
// users and a handful of records spread across the tiers.
type fixture struct {
	db       *gorm.DB
	resolver *auth.Resolver

	rootGroup  models.Group
	childGroup models.Group
	otherGroup models.Group

	analyst  models.User // member of rootGroup
	outsider models.User // member of otherGroup
	root     models.User // superuser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Ticket{},
		&models.Endpoint{},
		&models.Attachment{},
	)
	require.NoError(t, err, "failed to migrate test database")

	f := &fixture{db: db}

	f.rootGroup = models.Group{Name: "soc"}
	require.NoError(t, db.Create(&f.rootGroup).Error)

	f.childGroup = models.Group{Name: "soc-emea", ParentID: &f.rootGroup.ID}
	require.NoError(t, db.Create(&f.childGroup).Error)

	f.otherGroup = models.Group{Name: "it"}
	require.NoError(t, db.Create(&f.otherGroup).Error)

	f.analyst = models.User{Username: "analyst", Active: true, GroupID: &f.rootGroup.ID}
	require.NoError(t, db.Create(&f.analyst).Error)

	f.outsider = models.User{Username: "outsider", Active: true, GroupID: &f.otherGroup.ID}
	require.NoError(t, db.Create(&f.outsider).Error)

	f.root = models.User{Username: "root", Active: true, Superuser: true}
	require.NoError(t, db.Create(&f.root).Error)

	f.resolver = auth.NewResolver(auth.NewHierarchy(auth.NewGormGroupStore(db)))

	return f
}

func (f *fixture) principal(t *testing.T, user models.User, keys ...string) *auth.Principal {
	t.Helper()

	caps := make([]auth.Capability, 0, len(keys))

	for _, key := range keys {
		parsed, err := auth.ParseKey(key)
		require.NoError(t, err)

		caps = append(caps, parsed)
	}

	return auth.NewPrincipal(user, caps)
}

func (f *fixture) ticket(t *testing.T, ticket models.Ticket) models.Ticket {
	t.Helper()
	require.NoError(t, f.db.Create(&ticket).Error)

	return ticket
}

func TestTicketAuthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewTicketGuard(f.db, f.resolver, nil)

	mine := f.ticket(t, models.Ticket{Title: "mine", CreatedByID: f.analyst.ID, GroupID: &f.otherGroup.ID})
	inChild := f.ticket(t, models.Ticket{Title: "child", CreatedByID: f.outsider.ID, GroupID: &f.childGroup.ID})
	foreign := f.ticket(t, models.Ticket{Title: "foreign", CreatedByID: f.outsider.ID, GroupID: &f.otherGroup.ID})

	owner := f.principal(t, f.analyst, "ticket:read:own")

	got, err := g.Authorize(ctx, owner, mine.ID, auth.ActionRead)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	// the own tier does not reach other people's tickets
	_, err = g.Authorize(ctx, owner, foreign.ID, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	// group tier extends down the hierarchy
	grouped := f.principal(t, f.analyst, "ticket:read:group")

	_, err = g.Authorize(ctx, grouped, inChild.ID, auth.ActionRead)
	assert.NoError(t, err)

	_, err = g.Authorize(ctx, grouped, foreign.ID, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	// a missing ticket is not found, not forbidden
	_, err = g.Authorize(ctx, owner, 99999, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestTicketAuthorizePrivacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewTicketGuard(f.db, f.resolver, nil)

	private := f.ticket(t, models.Ticket{
		Title:        "private",
		CreatedByID:  f.outsider.ID,
		AssignedToID: uintPtr(f.analyst.ID),
		GroupID:      &f.rootGroup.ID,
		Private:      true,
	})

	// global capability does not pierce privacy
	global := f.principal(t, models.User{ID: 12345, Active: true}, "ticket:read:global")
	_, err := g.Authorize(ctx, global, private.ID, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	// the assignee sees it through the assigned tier
	assignee := f.principal(t, f.analyst, "ticket:read:assigned")
	_, err = g.Authorize(ctx, assignee, private.ID, auth.ActionRead)
	assert.NoError(t, err)

	// superuser is the only bypass
	su := f.principal(t, f.root)
	_, err = g.Authorize(ctx, su, private.ID, auth.ActionRead)
	assert.NoError(t, err)
}

func TestTicketFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewTicketGuard(f.db, f.resolver, nil)

	mine := f.ticket(t, models.Ticket{Title: "mine", CreatedByID: f.analyst.ID})
	assigned := f.ticket(t, models.Ticket{Title: "assigned", CreatedByID: f.outsider.ID, AssignedToID: uintPtr(f.analyst.ID)})
	inChild := f.ticket(t, models.Ticket{Title: "child", CreatedByID: f.outsider.ID, GroupID: &f.childGroup.ID})
	foreign := f.ticket(t, models.Ticket{Title: "foreign", CreatedByID: f.outsider.ID, GroupID: &f.otherGroup.ID})
	privateForeign := f.ticket(t, models.Ticket{Title: "private", CreatedByID: f.outsider.ID, GroupID: &f.rootGroup.ID, Private: true})

	list := func(p *auth.Principal) []uint64 {
		filter, err := g.Filter(ctx, p, auth.ActionRead)
		require.NoError(t, err)

		var tickets []models.Ticket
		require.NoError(t, filter(f.db).Find(&tickets).Error)

		ids := make([]uint64, 0, len(tickets))
		for _, tk := range tickets {
			ids = append(ids, tk.ID)
		}

		return ids
	}

	// read-own: created by me plus assigned to me
	assert.ElementsMatch(t, []uint64{mine.ID, assigned.ID}, list(f.principal(t, f.analyst, "ticket:read:own")))

	// group: descendant closure, private rows of others excluded
	assert.ElementsMatch(t, []uint64{inChild.ID}, list(f.principal(t, f.analyst, "ticket:read:group")))

	// global: everything except other people's private rows
	assert.ElementsMatch(t,
		[]uint64{mine.ID, assigned.ID, inChild.ID, foreign.ID},
		list(f.principal(t, f.analyst, "ticket:read:global")))

	// no capability at all: nothing
	assert.Empty(t, list(f.principal(t, f.analyst)))

	// superuser: everything, including private rows
	assert.ElementsMatch(t,
		[]uint64{mine.ID, assigned.ID, inChild.ID, foreign.ID, privateForeign.ID},
		list(f.principal(t, f.root)))
}

func TestTicketFilterIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewTicketGuard(f.db, f.resolver, nil)

	f.ticket(t, models.Ticket{Title: "mine", CreatedByID: f.analyst.ID})

	p := f.principal(t, f.analyst, "ticket:read:own")

	filter, err := g.Filter(ctx, p, auth.ActionRead)
	require.NoError(t, err)

	// applying the same filter to two fresh queries yields the same result
	var first, second []models.Ticket
	require.NoError(t, filter(f.db.Session(&gorm.Session{NewDB: true})).Find(&first).Error)
	require.NoError(t, filter(f.db.Session(&gorm.Session{NewDB: true})).Find(&second).Error)
	assert.Equal(t, len(first), len(second))
}

func TestTicketAuthorizeCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewTicketGuard(f.db, f.resolver, nil)

	draft := &models.Ticket{
		Title:        "new",
		CreatedByID:  f.analyst.ID,
		GroupID:      &f.rootGroup.ID,
		OwnerGroupID: &f.rootGroup.ID,
	}

	// create:own covers drafts the caller creates
	err := g.AuthorizeCreate(ctx, f.principal(t, f.analyst, "ticket:create:own"), draft)
	assert.NoError(t, err)

	// without any create capability the draft is rejected
	err = g.AuthorizeCreate(ctx, f.principal(t, f.analyst, "ticket:read:global"), draft)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	// creating into a foreign group needs a tier that reaches it
	foreignDraft := &models.Ticket{Title: "new", CreatedByID: f.analyst.ID, GroupID: &f.otherGroup.ID}
	err = g.AuthorizeCreate(ctx, f.principal(t, f.analyst, "ticket:create:group"), foreignDraft)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)
}

func TestEndpointAuthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewEndpointGuard(f.db, f.resolver, nil)

	inGroup := models.Endpoint{Hostname: "h1", GroupID: &f.childGroup.ID, CreatedByID: f.outsider.ID}
	require.NoError(t, f.db.Create(&inGroup).Error)

	foreign := models.Endpoint{Hostname: "h2", GroupID: &f.otherGroup.ID, CreatedByID: f.outsider.ID}
	require.NoError(t, f.db.Create(&foreign).Error)

	grouped := f.principal(t, f.analyst, "endpoint:read:group")

	_, err := g.Authorize(ctx, grouped, inGroup.ID, auth.ActionRead)
	assert.NoError(t, err)

	_, err = g.Authorize(ctx, grouped, foreign.ID, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	// create short-circuits: there is no object to check yet
	creator := f.principal(t, f.analyst, "endpoint:create:group")
	created, err := g.Authorize(ctx, creator, 0, auth.ActionCreate)
	require.NoError(t, err)
	assert.Zero(t, created.ID)
}

func TestEndpointFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewEndpointGuard(f.db, f.resolver, nil)

	inRoot := models.Endpoint{Hostname: "h1", GroupID: &f.rootGroup.ID, CreatedByID: f.outsider.ID}
	require.NoError(t, f.db.Create(&inRoot).Error)

	inChild := models.Endpoint{Hostname: "h2", GroupID: &f.childGroup.ID, CreatedByID: f.outsider.ID}
	require.NoError(t, f.db.Create(&inChild).Error)

	foreign := models.Endpoint{Hostname: "h3", GroupID: &f.otherGroup.ID, CreatedByID: f.outsider.ID}
	require.NoError(t, f.db.Create(&foreign).Error)

	list := func(p *auth.Principal) []uint64 {
		filter, err := g.Filter(ctx, p, auth.ActionRead)
		require.NoError(t, err)

		var endpoints []models.Endpoint
		require.NoError(t, filter(f.db).Find(&endpoints).Error)

		ids := make([]uint64, 0, len(endpoints))
		for _, e := range endpoints {
			ids = append(ids, e.ID)
		}

		return ids
	}

	assert.ElementsMatch(t, []uint64{inRoot.ID, inChild.ID}, list(f.principal(t, f.analyst, "endpoint:read:group")))
	assert.ElementsMatch(t, []uint64{inRoot.ID, inChild.ID, foreign.ID}, list(f.principal(t, f.analyst, "endpoint:read:global")))

	// own and assigned tiers grant nothing on endpoints
	assert.Empty(t, list(f.principal(t, f.analyst, "endpoint:read:own", "endpoint:read:assigned")))
}

func TestAttachmentAuthorizeDefersToParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewAttachmentGuard(f.db, f.resolver, nil)

	parent := f.ticket(t, models.Ticket{Title: "parent", CreatedByID: f.analyst.ID, GroupID: &f.otherGroup.ID})

	file := models.Attachment{TicketID: parent.ID, FileName: "dump.pcap", UploadedByID: f.analyst.ID}
	require.NoError(t, f.db.Create(&file).Error)

	// access follows the parent ticket's own tier
	owner := f.principal(t, f.analyst, "attachment:read:own")
	_, err := g.Authorize(ctx, owner, file.ID, auth.ActionRead)
	assert.NoError(t, err)

	// a stranger with no reach into the parent is denied
	stranger := f.principal(t, f.outsider, "attachment:read:own")
	_, err = g.Authorize(ctx, stranger, file.ID, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	_, err = g.Authorize(ctx, owner, 99999, auth.ActionRead)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestAttachmentAuthorizeCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := NewAttachmentGuard(f.db, f.resolver, nil)

	parent := f.ticket(t, models.Ticket{Title: "parent", CreatedByID: f.analyst.ID})

	got, err := g.AuthorizeCreate(ctx, f.principal(t, f.analyst, "attachment:create:own"), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, got.ID)

	_, err = g.AuthorizeCreate(ctx, f.principal(t, f.outsider, "attachment:create:own"), parent.ID)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	_, err = g.AuthorizeCreate(ctx, f.principal(t, f.analyst, "attachment:create:own"), 99999)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "matrixsql/data/db"
	dbbasic "matrixsql/data/db/basic"
	"matrixsql/data/orm/basic"
	"matrixsql/data/orm/l2"
	"matrixsql/data/orm/repo"
	"matrixsql/errors"
	"matrixsql/usertype"
	"matrixsql/usertype/columns"
)

type Member struct {
	ID     string     `db:"id" gorm:"primaryKey;default:uuid"`
	Name   string     `db:"name"`
	Joined civil.Date `db:"joined" usertype:"local_date"`
	Roles  []string   `db:"roles" usertype:"string_list"`
	Active bool       `db:"active" usertype:"boolean_int"`
}

const schema = `CREATE TABLE members (
	id TEXT PRIMARY KEY,
	name TEXT,
	joined INTEGER,
	roles TEXT,
	active INTEGER
)`

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: d}
}

func newRepo(t *testing.T, opts ...basic.Option) *repo.Repo[Member, string] {
	t.Helper()
	db, err := dbbasic.Open("sqlite", ":memory:", core.DBConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.MustExecDDL(schema))

	registry := usertype.NewRegistry()
	columns.RegisterAll(registry)
	opts = append([]basic.Option{basic.WithRegistry(registry)}, opts...)
	return repo.MustNew[Member, string](basic.New(db, opts...), "members")
}

func seed(t *testing.T, r *repo.Repo[Member, string]) []*Member {
	t.Helper()
	members := []*Member{
		{Name: "ann", Joined: day(1), Roles: []string{"admin", "dev"}, Active: true},
		{Name: "bob", Joined: day(2), Roles: []string{"dev"}},
		{Name: "cid", Joined: day(3), Active: true},
	}
	require.NoError(t, r.SaveAll(context.Background(), members))
	return members
}

func TestRepo_SaveGetExists(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	m := &Member{Name: "ann", Joined: day(1), Roles: []string{"admin"}, Active: true}
	require.NoError(t, r.Save(ctx, m))
	require.NotEmpty(t, m.ID)

	got, err := r.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	ok, err := r.Exists(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.Get(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
	ok, err = r.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepo_FindAllByIDs_PreservesOrder(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	members := seed(t, r)

	got, err := r.FindAllByIDs(ctx, []string{members[2].ID, "missing", members[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cid", got[0].Name)
	assert.Equal(t, "ann", got[1].Name)

	all, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRepo_FindByUserTypeColumn(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r)

	active, err := r.FindBy(ctx, "active", true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	one, err := r.FindOneBy(ctx, "joined", day(2))
	require.NoError(t, err)
	assert.Equal(t, "bob", one.Name)
	assert.Equal(t, []string{"dev"}, one.Roles)

	noRoles, err := r.FindBy(ctx, "roles", []string{})
	require.NoError(t, err)
	require.Len(t, noRoles, 1, "empty list matches NULL")
	assert.Equal(t, "cid", noRoles[0].Name)

	byText, err := r.FindByText(ctx, "joined", "20240303")
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "cid", byText[0].Name)

	_, err = r.FindByText(ctx, "joined", "2024-03-03")
	assert.True(t, errors.IsFormat(err))

	_, err = r.FindOneBy(ctx, "name", "nobody")
	assert.True(t, errors.IsNotFound(err))

	_, err = r.FindBy(ctx, "name; DROP TABLE members", "x")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
}

func TestRepo_IsPropertyUnique(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r)

	unique, err := r.IsPropertyUnique(ctx, "joined", day(1), day(1))
	require.NoError(t, err)
	assert.True(t, unique, "unchanged value")

	unique, err = r.IsPropertyUnique(ctx, "joined", nil, day(1))
	require.NoError(t, err)
	assert.True(t, unique)

	unique, err = r.IsPropertyUnique(ctx, "joined", day(2), day(1))
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = r.IsPropertyUnique(ctx, "joined", day(9), day(1))
	require.NoError(t, err)
	assert.True(t, unique)
}

func TestRepo_UpdateAndDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	members := seed(t, r)

	bob := members[1]
	bob.Roles = []string{"dev", "ops"}
	bob.Active = true
	require.NoError(t, r.Update(ctx, bob))

	got, err := r.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "ops"}, got.Roles)
	assert.True(t, got.Active)

	require.NoError(t, r.Delete(ctx, bob.ID))
	err = r.Delete(ctx, bob.ID)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, r.DeleteAll(ctx))
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepo_ListPage(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r)

	page, err := r.ListPage(ctx, &repo.QueryOptions{
		Page:  1,
		Size:  2,
		Sorts: map[string]repo.SortDirection{"joined": repo.DESC},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "cid", page.Data[0].Name)
	assert.Equal(t, "bob", page.Data[1].Name)

	page, err = r.ListPage(ctx, &repo.QueryOptions{
		Filters: map[string]string{"active": "1", "joined_gte": "20240302"},
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "cid", page.Data[0].Name)
	assert.Equal(t, 1, page.Page)

	page, err = r.ListPage(ctx, &repo.QueryOptions{
		Filters: map[string]string{"joined_in": "20240301,20240303", "unknown": "x"},
		Sorts:   map[string]repo.SortDirection{"name": repo.ASC},
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "ann", page.Data[0].Name)
	assert.Equal(t, "cid", page.Data[1].Name)

	page, err = r.ListPage(ctx, &repo.QueryOptions{
		Advanced: map[string]any{"or": []map[string]string{{"name": "ann"}, {"name": "bob"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = r.ListPageFromQuery(ctx, 2, 2, map[string]any{"name_like": "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Empty(t, page.Data)
}

func TestRepo_SecondLevelCache(t *testing.T) {
	region := l2.NewMemoryRegion("members", 16, time.Minute)
	r := newRepo(t, basic.WithCache(region))
	ctx := context.Background()
	members := seed(t, r)

	_, err := r.Get(ctx, members[0].ID)
	require.NoError(t, err)
	_, ok, err := region.Get(ctx, "members:"+members[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	members[0].Name = "anna"
	require.NoError(t, r.Update(ctx, members[0]))
	got, err := r.Get(ctx, members[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "anna", got.Name)
}

func TestRepo_WithSession(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	s, err := r.Orm().Begin(ctx)
	require.NoError(t, err)
	tr := r.WithSession(s)
	require.NoError(t, tr.Save(ctx, &Member{Name: "tx", Joined: day(4)}))
	require.NoError(t, s.Rollback())

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNew_RejectsUnsafePrimaryKey(t *testing.T) {
	db, err := dbbasic.Open("sqlite", ":memory:", core.DBConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	_, err = repo.New[Member, string](basic.New(db), "members", repo.WithPrimaryKey("id;"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
}

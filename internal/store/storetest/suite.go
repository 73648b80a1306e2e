// Package storetest holds the behaviour every core.Store implementation must
// share, as a testify suite.
package storetest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/suite"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// Suite runs the store contract against the store returned by NewStore.
// NewStore is called before every test and must return an empty store.
type Suite struct {
	suite.Suite
	NewStore func() core.Store

	store core.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

// Fields returns a valid attribute set named name.
func Fields(name string) core.Fields {
	return core.Fields{
		Name:       name,
		Type1:      "Grass",
		Type2:      core.StringPtr("Poison"),
		Total:      318,
		HP:         45,
		Attack:     49,
		Defense:    49,
		SpAtk:      65,
		SpDef:      65,
		Speed:      45,
		Generation: 1,
		Legendary:  false,
	}
}

func (s *Suite) create(name string) core.Record {
	rec, err := s.store.Create(s.ctx, Fields(name))
	s.Require().NoError(err)
	return rec
}

func (s *Suite) TestCreateAssignsSequentialIDs() {
	first := s.create("Bulbasaur")
	second := s.create("Ivysaur")

	s.Equal(int64(1), first.ID)
	s.Equal(int64(2), second.ID)
	s.Equal("Ivysaur", second.Name)
}

func (s *Suite) TestCreateReusesIDAfterDeletingMax() {
	s.create("Bulbasaur")
	second := s.create("Ivysaur")
	s.Require().NoError(s.store.Delete(s.ctx, second.ID))

	third := s.create("Venusaur")
	s.Equal(int64(2), third.ID)
}

func (s *Suite) TestConcurrentCreatesGetDistinctIDs() {
	const n = 10

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := s.store.Create(s.ctx, Fields("Pidgey"))
			if s.NoError(err) {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	s.Len(seen, n)
}

func (s *Suite) TestGet() {
	created := s.create("Charmander")

	got, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created, got)
}

func (s *Suite) TestGetNotFound() {
	_, err := s.store.Get(s.ctx, 99)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestReplace() {
	created := s.create("Squirtle")

	f := Fields("Wartortle")
	f.Type2 = nil
	f.Speed = 58
	got, err := s.store.Replace(s.ctx, created.ID, f)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("Wartortle", got.Name)
	s.Nil(got.Type2)

	stored, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(got, stored)
}

func (s *Suite) TestReplaceNotFound() {
	_, err := s.store.Replace(s.ctx, 42, Fields("Missingno"))
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestPatchChangesOnlySuppliedFields() {
	created := s.create("Pikachu")

	speed := 90
	got, err := s.store.Patch(s.ctx, created.ID, core.Patch{Speed: &speed})
	s.Require().NoError(err)
	s.Equal(90, got.Speed)
	s.Equal(created.Name, got.Name)
	s.Equal(created.Type2, got.Type2)
	s.Equal(created.HP, got.HP)
}

func (s *Suite) TestPatchClearsType2() {
	created := s.create("Oddish")

	got, err := s.store.Patch(s.ctx, created.ID, core.Patch{Type2: core.OptionalString{Set: true}})
	s.Require().NoError(err)
	s.Nil(got.Type2)
	s.Equal(created.Name, got.Name)
}

func (s *Suite) TestPatchNotFound() {
	name := "Ghost"
	_, err := s.store.Patch(s.ctx, 7, core.Patch{Name: &name})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestDelete() {
	created := s.create("Eevee")

	s.Require().NoError(s.store.Delete(s.ctx, created.ID))

	_, err := s.store.Get(s.ctx, created.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestDeleteNotFound() {
	s.ErrorIs(s.store.Delete(s.ctx, 1), core.ErrNotFound)
}

func (s *Suite) TestListOrdersAndPaginates() {
	for _, name := range []string{"Caterpie", "Metapod", "Butterfree", "Weedle", "Kakuna"} {
		s.create(name)
	}

	asc, err := s.store.List(s.ctx, core.ListQuery{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Equal([]int64{3, 4}, ids(asc))

	desc, err := s.store.List(s.ctx, core.ListQuery{Descending: true, Limit: 2})
	s.Require().NoError(err)
	s.Equal([]int64{5, 4}, ids(desc))

	past, err := s.store.List(s.ctx, core.ListQuery{Limit: 10, Offset: 10})
	s.Require().NoError(err)
	s.Empty(past)
}

func (s *Suite) TestListSearchIsCaseInsensitiveSubstring() {
	s.create("Pikachu")
	s.create("Raichu")
	s.create("Pidgey")

	col, ok := core.LookupColumn("name")
	s.Require().True(ok)

	got, err := s.store.List(s.ctx, core.ListQuery{
		Search: &core.Search{Column: col, Keyword: "CHU"},
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{1, 2}, ids(got))
}

func (s *Suite) TestListSearchNumericColumn() {
	a := Fields("Slowpoke")
	a.Speed = 15
	b := Fields("Jolteon")
	b.Speed = 130
	_, err := s.store.Create(s.ctx, a)
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, b)
	s.Require().NoError(err)

	col, _ := core.LookupColumn("speed")
	got, err := s.store.List(s.ctx, core.ListQuery{
		Search: &core.Search{Column: col, Keyword: "13"},
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{2}, ids(got))
}

func (s *Suite) TestListSearchSkipsNullType2() {
	withType2 := Fields("Bulbasaur")
	noType2 := Fields("Charmander")
	noType2.Type2 = nil
	_, err := s.store.Create(s.ctx, withType2)
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, noType2)
	s.Require().NoError(err)

	col, _ := core.LookupColumn("type_2")
	got, err := s.store.List(s.ctx, core.ListQuery{
		Search: &core.Search{Column: col, Keyword: "o"},
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{1}, ids(got))
}

func (s *Suite) TestListSearchTreatsWildcardsLiterally() {
	s.create("Mr. Mime")
	s.create("Mr_Mime")

	col, _ := core.LookupColumn("name")
	got, err := s.store.List(s.ctx, core.ListQuery{
		Search: &core.Search{Column: col, Keyword: "_"},
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{2}, ids(got))

	got, err = s.store.List(s.ctx, core.ListQuery{
		Search: &core.Search{Column: col, Keyword: "%"},
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *Suite) TestBulkCreateContinuesFromMax() {
	s.create("Mew")

	res, err := s.store.BulkCreate(s.ctx, []core.Fields{Fields("A1"), Fields("A2"), Fields("A3")})
	s.Require().NoError(err)
	s.Equal(core.BulkResult{FirstID: 2, LastID: 4, Inserted: 3}, res)

	got, err := s.store.Get(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal("A2", got.Name)
}

func (s *Suite) TestBulkCreateAppendsDuplicates() {
	batch := []core.Fields{Fields("Ditto"), Fields("Ditto")}

	_, err := s.store.BulkCreate(s.ctx, batch)
	s.Require().NoError(err)
	res, err := s.store.BulkCreate(s.ctx, batch)
	s.Require().NoError(err)
	s.Equal(int64(3), res.FirstID)

	all, err := s.store.List(s.ctx, core.ListQuery{Limit: 10})
	s.Require().NoError(err)
	s.Len(all, 4)
}

func (s *Suite) TestBulkCreateEmpty() {
	res, err := s.store.BulkCreate(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(0, res.Inserted)
}

func (s *Suite) TestBulkCreateCancelledWritesNothing() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.store.BulkCreate(ctx, []core.Fields{Fields("Onix")})
	s.Require().Error(err)

	all, err := s.store.List(s.ctx, core.ListQuery{Limit: 10})
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func ids(records []core.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

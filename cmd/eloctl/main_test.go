package main

import (
	"bytes"
	"context"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/eloforge/internal/battle"
	"github.com/meur/eloforge/internal/models"
	"github.com/meur/eloforge/internal/rating"
	"github.com/meur/eloforge/internal/storage"
)

func TestPlayBattle(t *testing.T) {
	ctx := context.Background()
	store, err := storage.New(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	defer store.Close()

	list, err := store.CreateList(ctx, "u1", &models.ListCreate{Title: "Pair"})
	require.NoError(t, err)
	for _, title := range []string{"Alien", "Aliens"} {
		_, err := store.CreateItem(ctx, list.ID, &models.ItemCreate{Title: title})
		require.NoError(t, err)
	}

	battles := battle.NewManager(store, store, battle.Config{
		Selector: rating.NewSelector(rand.New(rand.NewPCG(9, 9))),
	})
	session, err := battles.Start(ctx, list.ID, "")
	require.NoError(t, err)
	first := session.Current()[0]

	var out bytes.Buffer
	// One pick, one bad answer, then quit.
	err = playBattle(ctx, session, strings.NewReader("1\nmaybe\nq\n"), &out)
	require.NoError(t, err)
	battles.Wait()

	assert.Contains(t, out.String(), "Please answer 1, 2 or q.")
	assert.Equal(t, 1, session.View().Comparisons)

	stored, err := store.GetItem(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1518.0, stored.Rating)
}

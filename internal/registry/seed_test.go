package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/registry"
	"github.com/spec-kit/incident-service/internal/repository/memory"
)

const sampleSeed = `
users:
  - {id: u-1, name: Asha, email: asha@example.com, role: admin}
  - {id: u-2, name: Ben, email: ben@example.com}
work_locations:
  - {id: bay-1, name: Bay 1, owner_user_id: u-1, owner_email: asha@example.com, location_type: Bay}
types:
  - {id: t-1, name: Near miss}
categories:
  - {id: cat-1, name: Slip}
subcategories:
  - {id: sub-1, name: Wet floor, category_id: cat-1}
`

func TestParseAndApply(t *testing.T) {
	seed, err := registry.Parse([]byte(sampleSeed))
	require.NoError(t, err)
	require.Len(t, seed.Users, 2)

	store := memory.NewStore()
	repo := store.Classifications()
	result, err := registry.Apply(context.Background(), repo, seed)
	require.NoError(t, err)
	require.Equal(t, registry.ApplyResult{Users: 2, Entities: 4}, result)

	admin, err := repo.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, domain.UserRoleAdmin, admin.Role)

	plain, err := repo.GetUser(context.Background(), "u-2")
	require.NoError(t, err)
	require.Equal(t, domain.UserRoleUser, plain.Role)

	bay, err := repo.Get(context.Background(), domain.KindWorkLocation, "bay-1")
	require.NoError(t, err)
	require.Equal(t, "u-1", bay.OwnerUserID)
	require.Equal(t, "Bay", bay.LocationType)

	sub, err := repo.Get(context.Background(), domain.KindSubcategory, "sub-1")
	require.NoError(t, err)
	require.Equal(t, "cat-1", sub.ParentID)

	// applying twice upserts rather than duplicating
	_, err = registry.Apply(context.Background(), repo, seed)
	require.NoError(t, err)
	users, err := repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestParse_RejectsInvalidSeeds(t *testing.T) {
	cases := map[string]string{
		"missing name":      "users:\n  - {id: u-1}\n",
		"unknown owner":     "work_locations:\n  - {id: bay-1, name: Bay, owner_user_id: ghost}\n",
		"unknown category":  "subcategories:\n  - {id: s-1, name: Wet, category_id: nope}\n",
		"blank category id": "categories:\n  - {id: '', name: Slip}\n",
		"not yaml":          "users: [",
	}
	for name, raw := range cases {
		_, err := registry.Parse([]byte(raw))
		require.Error(t, err, name)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeed), 0o600))

	seed, err := registry.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, seed.WorkLocations, 1)

	_, err = registry.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

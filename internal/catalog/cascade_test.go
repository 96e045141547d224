package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	prodA = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	prodB = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
)

func TestReconcilePacks_NilArrayLeavesMembershipAlone(t *testing.T) {
	current := []packRef{{ID: prodA, Name: "70G"}}

	plan, err := reconcilePacks(current, nil, "pack size")
	require.NoError(t, err)
	require.Empty(t, plan.Renames)
	require.Empty(t, plan.Creates)
	require.Empty(t, plan.Archives)
}

func TestReconcilePacks_SplitsRenamesCreatesArchives(t *testing.T) {
	keep := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	renamed := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	dropped := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	current := []packRef{
		{ID: keep, Name: "70G"},
		{ID: renamed, Name: "120G"},
		{ID: dropped, Name: "200G"},
	}
	incoming := []PackEntryInput{
		{ID: &keep, Name: "70g"}, // same name after normalization
		{ID: &renamed, Name: "150g"},
		{Name: "300g"},
	}

	plan, err := reconcilePacks(current, &incoming, "pack size")
	require.NoError(t, err)
	require.Equal(t, map[uuid.UUID]string{renamed: "150G"}, plan.Renames)
	require.Equal(t, []string{"300G"}, plan.Creates)
	require.Equal(t, []uuid.UUID{dropped}, plan.Archives)
}

func TestReconcilePacks_EmptyArrayArchivesEverything(t *testing.T) {
	incoming := []PackEntryInput{}
	current := []packRef{{ID: prodA, Name: "70G"}, {ID: prodB, Name: "120G"}}

	plan, err := reconcilePacks(current, &incoming, "pack size")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{prodA, prodB}, plan.Archives)
	require.Empty(t, plan.Renames)
	require.Empty(t, plan.Creates)
}

func TestReconcilePacks_RejectsDuplicateNames(t *testing.T) {
	incoming := []PackEntryInput{{Name: "Single Pack"}, {Name: "single  pack"}}

	_, err := reconcilePacks(nil, &incoming, "pack type")
	require.Error(t, err)
	require.Equal(t, ErrCodeBadRequest, AsError(err).Code)
	require.Contains(t, err.Error(), "duplicate pack type")
}

func TestReconcilePacks_RejectsForeignID(t *testing.T) {
	foreign := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	incoming := []PackEntryInput{{ID: &foreign, Name: "70g"}}

	_, err := reconcilePacks(nil, &incoming, "pack size")
	require.Error(t, err)
	require.Equal(t, ErrCodeBadRequest, AsError(err).Code)
	require.Contains(t, err.Error(), "does not belong to this variant")
}

func TestReconcilePacks_RejectsEmptyName(t *testing.T) {
	incoming := []PackEntryInput{{Name: "   "}}

	_, err := reconcilePacks(nil, &incoming, "pack size")
	require.Error(t, err)
	require.Equal(t, ErrCodeBadRequest, AsError(err).Code)
}

func TestCollisionGroups_DistinctIdentitiesProduceNoGroups(t *testing.T) {
	items := []prospective{
		{ProductID: prodA, Identity: DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Single Pack")},
		{ProductID: prodB, Identity: DeriveProductIdentity("Indomie", "Chicken Curry", "120g", "Twin Pack")},
	}
	require.Empty(t, collisionGroups(items))
}

func TestCollisionGroups_SKUConvergesWithoutNameCollision(t *testing.T) {
	items := []prospective{
		{ProductID: prodA, Identity: DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Twin Pack")},
		{ProductID: prodB, Identity: DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Twin-Pack")},
	}

	groups := collisionGroups(items)
	require.Len(t, groups, 1)
	require.Equal(t, "sku", groups[0].Field)
	require.Equal(t, "INDOMIE-CHICKEN-CURRY-70G-TWIN-PACK", groups[0].Value)
	require.Equal(t, []uuid.UUID{prodA, prodB}, groups[0].ProductIDs)
}

func TestCollisionGroups_SharedIdentityGroupsNameAndSKU(t *testing.T) {
	identity := DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Single Pack")
	items := []prospective{
		{ProductID: prodA, Identity: identity},
		{ProductID: prodB, Identity: identity},
	}

	groups := collisionGroups(items)
	require.Len(t, groups, 2)
	require.Equal(t, "name", groups[0].Field)
	require.Equal(t, identity.Name, groups[0].Value)
	require.Equal(t, "sku", groups[1].Field)
	require.Equal(t, identity.SKU, groups[1].Value)
	require.Equal(t, []uuid.UUID{prodA, prodB}, groups[0].ProductIDs)
}

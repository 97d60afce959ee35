// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/template"
)

func testDescriptions(t *testing.T) []*isa.Description {
	t.Helper()
	descs, err := isa.Instructions()
	require.NoError(t, err)

	selected := isa.Select(descs, "ADD_00_Eb_Gb", "JMP_EB_Jb")
	require.Len(t, selected, 2)

	return selected
}

func generate(t *testing.T, descs []*isa.Description) []*template.Template {
	t.Helper()
	templates, err := template.Generate(context.Background(), descs)
	require.NoError(t, err)

	return templates
}

func TestSaveAndDiffUnchanged(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Diff("32", nil)
	require.ErrorIs(t, err, ErrNoBaseline)

	templates := generate(t, testDescriptions(t))
	require.Len(t, templates, 15)

	fp, err := store.Save("32", templates)
	require.NoError(t, err)

	got, mode, err := store.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp, got)
	assert.Equal(t, "32", mode)

	records, err := store.Records()
	require.NoError(t, err)
	assert.Len(t, records, len(templates))

	diff, err := store.Diff("32", templates)
	require.NoError(t, err)
	assert.True(t, diff.Empty())
	assert.Equal(t, diff.Baseline, diff.Current)
	assert.Contains(t, diff.String(), "match baseline")

	_, err = store.Diff("16", templates)
	require.ErrorIs(t, err, ErrModeMismatch)
}

func TestDiffRemoved(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	descs := testDescriptions(t)
	_, err = store.Save("32", generate(t, descs))
	require.NoError(t, err)

	diff, err := store.Diff("32", generate(t, descs[1:]))
	require.NoError(t, err)
	assert.False(t, diff.Empty())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, diff.Removed)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Changed)
	assert.Equal(t, 2, diff.Renumbered)
}

func TestDiffChanged(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	descs := testDescriptions(t)
	_, err = store.Save("32", generate(t, descs))
	require.NoError(t, err)

	jmp := *descs[1]
	jmp.Testable = false
	diff, err := store.Diff("32", generate(t, []*isa.Description{descs[0], &jmp}))
	require.NoError(t, err)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Zero(t, diff.Renumbered)
	require.Len(t, diff.Changed, 2)
	for i, change := range diff.Changed {
		assert.Equal(t, "JMP_EB_Jb", change.UID)
		assert.Equal(t, 13+i, change.NewSerial)
		assert.Equal(t, change.OldSerial, change.NewSerial)
		assert.Contains(t, change.Delta, "externallyTestable")
	}

	assert.Contains(t, diff.String(), "0 added, 0 removed, 2 changed, 0 renumbered")
}

func TestDiffAdded(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	descs := testDescriptions(t)
	_, err = store.Save("32", generate(t, descs[:1]))
	require.NoError(t, err)

	diff, err := store.Diff("32", generate(t, descs))
	require.NoError(t, err)
	assert.Equal(t, []int{13, 14}, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Changed)
	assert.Zero(t, diff.Renumbered)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	templates := generate(t, testDescriptions(t))
	fp, err := store.Save("16", templates)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	got, mode, err := store.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp, got)
	assert.Equal(t, "16", mode)

	// Saving a smaller set removes the
	// old records.
	_, err = store.Save("16", templates[:3])
	require.NoError(t, err)

	records, err := store.Records()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestEncodeDeterministic(t *testing.T) {
	descs := testDescriptions(t)
	_, a, err := Encode(generate(t, descs))
	require.NoError(t, err)

	_, b, err := Encode(generate(t, descs))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, c, err := Encode(generate(t, descs[:1]))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

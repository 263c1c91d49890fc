package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotEqual(t *testing.T) {
	base := func() Snapshot {
		return NewSnapshot(
			[]FileChange{{Path: "a.go", FileStat: FileStat{Additions: 3, Deletions: 1}}},
			[]FileChange{{Path: "b.go", FileStat: FileStat{Additions: 0, Deletions: 2}}},
		)
	}

	tests := []struct {
		name  string
		other Snapshot
		equal bool
	}{
		{
			name:  "identical maps",
			other: base(),
			equal: true,
		},
		{
			name: "different addition count",
			other: NewSnapshot(
				[]FileChange{{Path: "a.go", FileStat: FileStat{Additions: 4, Deletions: 1}}},
				[]FileChange{{Path: "b.go", FileStat: FileStat{Additions: 0, Deletions: 2}}},
			),
			equal: false,
		},
		{
			name: "file moved from unstaged to staged",
			other: NewSnapshot(
				[]FileChange{
					{Path: "a.go", FileStat: FileStat{Additions: 3, Deletions: 1}},
					{Path: "b.go", FileStat: FileStat{Additions: 0, Deletions: 2}},
				},
				nil,
			),
			equal: false,
		},
		{
			name: "extra unstaged file",
			other: NewSnapshot(
				[]FileChange{{Path: "a.go", FileStat: FileStat{Additions: 3, Deletions: 1}}},
				[]FileChange{
					{Path: "b.go", FileStat: FileStat{Additions: 0, Deletions: 2}},
					{Path: "c.go", FileStat: FileStat{Additions: 1}},
				},
			),
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, base().Equal(tt.other))
			assert.Equal(t, tt.equal, tt.other.Equal(base()), "equality must be symmetric")
		})
	}
}

func TestSnapshotEqual_NilAndEmptyMaps(t *testing.T) {
	assert.True(t, Snapshot{}.Equal(NewSnapshot(nil, nil)))
	assert.True(t, Snapshot{}.IsEmpty())
}

func TestSnapshotChangesAreSorted(t *testing.T) {
	s := NewSnapshot(nil, []FileChange{
		{Path: "z.txt", FileStat: FileStat{Additions: 1}},
		{Path: "a.txt", FileStat: FileStat{Deletions: 5}},
	})

	changes := s.UnstagedChanges()
	assert.Equal(t, "a.txt", changes[0].Path)
	assert.Equal(t, "z.txt", changes[1].Path)

	add, del := Totals(changes)
	assert.Equal(t, uint(1), add)
	assert.Equal(t, uint(5), del)
}

func TestRepositoryMatches(t *testing.T) {
	r := Repository{Name: "gitsmart", Aliases: []string{"gs"}}
	assert.True(t, r.Matches("gitsmart"))
	assert.True(t, r.Matches("gs"))
	assert.False(t, r.Matches("other"))
}

package record

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewStorageHasRoot(t *testing.T) {
	s := NewStorage(testNow)

	root, ok := s.Folder(RootFolderID)
	require.True(t, ok)
	assert.Equal(t, "/", root.Path)
	assert.Empty(t, s.Files)
	assert.NotNil(t, s.Files)
}

func TestAddFolderDerivesPathAndChildren(t *testing.T) {
	s := NewStorage(testNow)

	docs, err := s.AddFolder(Folder{ID: "f1", Name: "Docs", ParentID: RootFolderID})
	require.NoError(t, err)
	assert.Equal(t, "/Docs", docs.Path)

	invoices, err := s.AddFolder(Folder{ID: "f2", Name: "Invoices", ParentID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "/Docs/Invoices", invoices.Path)

	root, _ := s.Folder(RootFolderID)
	assert.Equal(t, []string{"f1"}, root.Children)
	parent, _ := s.Folder("f1")
	assert.Equal(t, []string{"f2"}, parent.Children)
}

func TestAddRejectsDuplicatesAndBadInput(t *testing.T) {
	s := NewStorage(testNow)
	require.NoError(t, s.AddFile(File{ID: "a", Name: "a.txt", FolderID: RootFolderID}))

	assert.ErrorIs(t, s.AddFile(File{ID: "a", Name: "b.txt", FolderID: RootFolderID}), ErrDuplicateID)
	assert.ErrorIs(t, s.AddFile(File{ID: "b", Name: "A.TXT", FolderID: RootFolderID}), ErrNameConflict)
	assert.ErrorIs(t, s.AddFile(File{ID: "c", Name: "c.txt", FolderID: "nope"}), ErrFolderNotFound)
	assert.ErrorIs(t, s.AddFile(File{ID: "d", Name: "../etc", FolderID: RootFolderID}), ErrInvalidName)
	assert.ErrorIs(t, s.AddFile(File{ID: "e", Name: "   ", FolderID: RootFolderID}), ErrInvalidName)

	_, err := s.AddFolder(Folder{ID: "a", Name: "dup", ParentID: RootFolderID})
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = s.AddFolder(Folder{ID: RootFolderID, Name: "again", ParentID: RootFolderID})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestRenameFolderRewritesDescendantPaths(t *testing.T) {
	s := NewStorage(testNow)
	_, err := s.AddFolder(Folder{ID: "f1", Name: "Docs", ParentID: RootFolderID})
	require.NoError(t, err)
	_, err = s.AddFolder(Folder{ID: "f2", Name: "2024", ParentID: "f1"})
	require.NoError(t, err)
	_, err = s.AddFolder(Folder{ID: "f3", Name: "Q1", ParentID: "f2"})
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	renamed, err := s.RenameFolder("f1", "Papers", later)
	require.NoError(t, err)
	assert.Equal(t, "/Papers", renamed.Path)
	assert.Equal(t, later, renamed.ModifiedAt)

	q1, _ := s.Folder("f3")
	assert.Equal(t, "/Papers/2024/Q1", q1.Path)
}

func TestRenameConflictsAndRoot(t *testing.T) {
	s := NewStorage(testNow)
	require.NoError(t, s.AddFile(File{ID: "a", Name: "a.txt", FolderID: RootFolderID}))
	require.NoError(t, s.AddFile(File{ID: "b", Name: "b.txt", FolderID: RootFolderID}))

	_, err := s.RenameFile("a", "b.txt", testNow)
	assert.ErrorIs(t, err, ErrNameConflict)

	renamed, err := s.RenameFile("a", "a.txt", testNow)
	require.NoError(t, err, "renaming to the current name is allowed")
	assert.Equal(t, "a.txt", renamed.Name)

	_, err = s.RenameFile("missing", "x", testNow)
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = s.RenameFolder(RootFolderID, "Top", testNow)
	assert.ErrorIs(t, err, ErrRootImmutable)
}

func TestDeleteFolderCascades(t *testing.T) {
	s := NewStorage(testNow)
	_, err := s.AddFolder(Folder{ID: "f1", Name: "Docs", ParentID: RootFolderID})
	require.NoError(t, err)
	_, err = s.AddFolder(Folder{ID: "f2", Name: "Old", ParentID: "f1"})
	require.NoError(t, err)
	require.NoError(t, s.AddFile(File{ID: "keep", Name: "keep.txt", FolderID: RootFolderID, Size: 3}))
	require.NoError(t, s.AddFile(File{ID: "x", Name: "x.txt", FolderID: "f1", Size: 10}))
	require.NoError(t, s.AddFile(File{ID: "y", Name: "y.txt", FolderID: "f2", Size: 20}))

	result, err := s.DeleteFolder("f1")
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Files: 2, Folders: 2}, result)

	assert.Len(t, s.Files, 1)
	assert.Len(t, s.Folders, 1)
	root, _ := s.Folder(RootFolderID)
	assert.Equal(t, []string{"keep"}, root.Children)
	assert.Equal(t, Usage{TotalBytes: 3, FileCount: 1, FolderCount: 1}, s.Usage())

	_, err = s.DeleteFolder(RootFolderID)
	assert.ErrorIs(t, err, ErrRootImmutable)
	_, err = s.DeleteFolder("f1")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestDeleteFileDetachesChild(t *testing.T) {
	s := NewStorage(testNow)
	require.NoError(t, s.AddFile(File{ID: "a", Name: "a.txt", FolderID: RootFolderID}))

	require.NoError(t, s.DeleteFile("a"))
	assert.Empty(t, s.Files)
	root, _ := s.Folder(RootFolderID)
	assert.Empty(t, root.Children)

	assert.ErrorIs(t, s.DeleteFile("a"), ErrFileNotFound)
}

func TestNormalizeRestoresRoot(t *testing.T) {
	s := Storage{Folders: []Folder{{ID: "f1", Name: "Docs", ParentID: RootFolderID}}}
	s.Normalize(testNow)

	_, ok := s.Folder(RootFolderID)
	assert.True(t, ok)
	assert.NotNil(t, s.Files)
	f1, _ := s.Folder("f1")
	assert.NotNil(t, f1.Children)
}

func TestCloneDoesNotAlias(t *testing.T) {
	user := User{StorageID: "alice", Storage: NewStorage(testNow)}
	clone := user.Clone()

	require.NoError(t, clone.Storage.AddFile(File{ID: "a", Name: "a.txt", FolderID: RootFolderID}))

	assert.Empty(t, user.Storage.Files)
	root, _ := user.Storage.Folder(RootFolderID)
	assert.Empty(t, root.Children)
}

func TestValidateNameCountsCharacters(t *testing.T) {
	name, err := ValidateName(strings.Repeat("日", 100))
	require.NoError(t, err)
	assert.Equal(t, 100, len([]rune(name)))

	_, err = ValidateName(strings.Repeat("é", maxNameLength))
	assert.NoError(t, err, "255 two-byte characters fit")

	_, err = ValidateName(strings.Repeat("é", maxNameLength+1))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = ValidateName("bad\xffname")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestUsageSaturatesInsteadOfOverflowing(t *testing.T) {
	s := NewStorage(testNow)
	require.NoError(t, s.AddFile(File{ID: "a", Name: "a", FolderID: RootFolderID, Size: math.MaxInt64 - 1}))
	require.NoError(t, s.AddFile(File{ID: "b", Name: "b", FolderID: RootFolderID, Size: math.MaxInt64 - 1}))

	assert.Equal(t, int64(math.MaxInt64), s.Usage().TotalBytes)
}

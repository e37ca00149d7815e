package locations

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrybrwn/scout/link"
	"github.com/matryer/is"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func init() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	SetLogger(l)
}

func testDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"simple-1.0.tar.gz", "simple-2.0.zip", "index.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestClassify(t *testing.T) {
	dir := testDir(t)
	for _, tt := range []struct {
		loc  string
		want Kind
	}{
		{dir, Listable},
		{link.PathToURL(dir), Listable},
		{link.PathToURL(filepath.Join(dir, "simple-1.0.tar.gz")), Remote},
		{filepath.Join(dir, "simple-1.0.tar.gz"), Remote},
		{link.PathToURL(filepath.Join(dir, "missing")), Remote},
		{"http://pypi.python.org/simple/", Remote},
		{"https://pypi.python.org/simple/", Remote},
		{"HTTPS://pypi.python.org/simple/", Remote},
	} {
		t.Run(tt.loc, func(t *testing.T) {
			is := is.New(t)
			kind, err := Classify(tt.loc)
			is.NoErr(err)
			is.Equal(kind, tt.want)
		})
	}
}

func TestSortFindLinkDir(t *testing.T) {
	is := is.New(t)
	dir := testDir(t)
	locs, err := Sort(context.Background(), []string{link.PathToURL(dir)}, nil)
	is.NoErr(err)
	is.Equal(len(locs.Dirs), 1)
	is.Equal(len(locs.Files), 2)
	is.Equal(len(locs.Pages), 1) // index.html is scraped instead of downloaded
	is.Equal(locs.Pages[0].Filename(), "index.html")
	is.Equal(locs.Files[0].Filename(), "simple-1.0.tar.gz")
	is.Equal(locs.Listings[locs.Dirs[0]], []string{"index.html", "simple-1.0.tar.gz", "simple-2.0.zip"})
}

func TestSortMixed(t *testing.T) {
	is := is.New(t)
	dir := testDir(t)
	locs, err := Sort(context.Background(), []string{
		"https://pypi.python.org/simple/simple/",
		filepath.Join(dir, "simple-2.0.zip"),
		link.PathToURL(filepath.Join(dir, "gone.tar.gz")),
	}, nil)
	is.NoErr(err)
	is.Equal(len(locs.Dirs), 0)
	is.Equal(len(locs.Pages), 1)
	is.Equal(locs.Pages[0].String(), "https://pypi.python.org/simple/simple/")
	is.Equal(len(locs.Files), 1)
	is.True(locs.Files[0].IsLocalFile())
}

type fakeLister struct {
	entries []string
	err     error
	calls   []string
}

func (fl *fakeLister) ListDir(path string) ([]string, error) {
	fl.calls = append(fl.calls, path)
	return fl.entries, fl.err
}

func TestSortUsesLister(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	fl := &fakeLister{entries: []string{"b-1.0.tar.gz", "a.htm"}}
	locs, err := Sort(context.Background(), []string{dir}, fl)
	is.NoErr(err)
	is.Equal(len(fl.calls), 1)
	is.Equal(len(locs.Files), 1)
	is.Equal(len(locs.Pages), 1)
	is.Equal(locs.Pages[0].Filename(), "a.htm")

	fl.err = errors.New("permission denied")
	_, err = Sort(context.Background(), []string{dir}, fl)
	is.True(err != nil)
}

func TestSortCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sort(ctx, []string{"http://example.com/"}, nil)
	is.True(errors.Is(err, context.Canceled))
}

func TestScheme(t *testing.T) {
	is := is.New(t)
	is.Equal(scheme("http://a"), "http")
	is.Equal(scheme("FILE:///tmp"), "file")
	is.Equal(scheme(`C:\pkgs`), "")
	is.Equal(scheme("/tmp/pkgs"), "")
	is.Equal(scheme("git+https://x"), "git+https")
}

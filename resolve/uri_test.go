package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestToURI(t *testing.T) {
	Convey("Given input that already carries a scheme", t, func() {
		for _, in := range []string{
			"https://example.com/movie.mp4",
			"file:///home/u/movie.mp4",
			"rtsp://camera.local:554/stream",
		} {
			Convey("It is returned unchanged: "+in, func() {
				out, err := ToURI(in)
				So(err, ShouldBeNil)
				So(out, ShouldEqual, in)
			})
		}
	})

	Convey("Given an existing local file", t, func() {
		dir, err := filepath.EvalSymlinks(t.TempDir())
		So(err, ShouldBeNil)
		path := filepath.Join(dir, "movie.mp4")
		So(os.WriteFile(path, []byte("x"), 0o644), ShouldBeNil)

		Convey("A relative path resolves to a file:// URI of the absolute path", func() {
			wd, _ := os.Getwd()
			So(os.Chdir(dir), ShouldBeNil)
			defer func() { _ = os.Chdir(wd) }()

			out, err := ToURI("movie.mp4")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "file://"+filepath.ToSlash(path))
		})

		Convey("Dot segments are canonicalized away", func() {
			out, err := ToURI(dir + "/./movie.mp4")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "file://"+filepath.ToSlash(path))
		})

		Convey("Symlinks are followed", func() {
			link := filepath.Join(dir, "link.mp4")
			So(os.Symlink(path, link), ShouldBeNil)

			out, err := ToURI(link)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "file://"+filepath.ToSlash(path))
		})

		Convey("Reserved characters are percent-encoded", func() {
			spaced := filepath.Join(dir, "my movie#1.mp4")
			So(os.WriteFile(spaced, []byte("x"), 0o644), ShouldBeNil)

			out, err := ToURI(spaced)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "file://"+filepath.ToSlash(dir)+"/my%20movie%231.mp4")
		})
	})

	Convey("Given a path that does not exist", t, func() {
		_, err := ToURI(filepath.Join(t.TempDir(), "nope.mp4"))

		Convey("Resolution fails with ErrUnresolvable", func() {
			So(errors.Is(err, ErrUnresolvable), ShouldBeTrue)
		})
	})

	Convey("Given an empty path", t, func() {
		_, err := ToURI("")
		So(errors.Is(err, ErrUnresolvable), ShouldBeTrue)
	})
}

package util

import (
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidplay-cli/vidplay/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("history"), ShouldEqual, "History")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestDelete(t *testing.T) {
	Convey("Delete", t, func() {
		fs := filesystem.API()

		Convey("Should remove a single file", func() {
			So(fs.WriteFile("/tmp/a.txt", []byte("x"), 0o644), ShouldBeNil)
			So(Delete("/tmp/a.txt"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/a.txt")), ShouldBeFalse)
		})

		Convey("Should remove a directory tree", func() {
			So(fs.MkdirAll("/tmp/dir/nested", 0o755), ShouldBeNil)
			So(Delete("/tmp/dir"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/dir/nested")), ShouldBeFalse)
		})

		Convey("Should fail for a missing path", func() {
			So(Delete("/tmp/missing"), ShouldNotBeNil)
		})
	})
}

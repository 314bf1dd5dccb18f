package where

import (
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidplay-cli/vidplay/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Config() honors the override variable", func() {
			t.Setenv(EnvConfigPath, "/custom/vidplay")
			So(Config(), ShouldEqual, "/custom/vidplay")
			So(lo.Must(filesystem.API().IsDir("/custom/vidplay")), ShouldBeTrue)
		})

		Convey("Logs()", func() {
			path := Logs()
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("History() lives in the state directory", func() {
			So(filepath.Dir(History()), ShouldEqual, State())
			So(lo.Must(filesystem.API().IsDir(State())), ShouldBeTrue)
		})
	})
}

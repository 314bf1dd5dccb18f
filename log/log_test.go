package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vidplay-cli/vidplay/filesystem"
	"github.com/vidplay-cli/vidplay/key"
	"github.com/vidplay-cli/vidplay/where"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)

		Convey("Setup should succeed and leave logging off", func() {
			So(Setup(), ShouldBeNil)
			So(Enabled(), ShouldBeFalse)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "not-a-level")
		defer viper.Set(key.LogsWrite, false)

		Convey("Setup should create today's log file", func() {
			So(Setup(), ShouldBeNil)
			So(Enabled(), ShouldBeTrue)

			Infof("hello %s", "log")
			path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
			So(lo.Must(filesystem.API().Exists(path)), ShouldBeTrue)
		})
	})
}

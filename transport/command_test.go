package transport

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	step := 10 * time.Second

	Convey("Parse", t, func() {
		Convey("selects the command from the first character, ignoring case", func() {
			So(Parse("p", step).Kind, ShouldEqual, TogglePause)
			So(Parse("P", step).Kind, ShouldEqual, TogglePause)
			So(Parse("q", step).Kind, ShouldEqual, Quit)
			So(Parse("Q", step).Kind, ShouldEqual, Quit)
		})

		Convey("gives seeks a signed delta", func() {
			So(Parse("s", step), ShouldResemble, Command{Kind: SeekForward, Delta: step, Raw: "s"})
			So(Parse("R", step), ShouldResemble, Command{Kind: SeekBackward, Delta: -step, Raw: "R"})
		})

		Convey("ignores trailing content and surrounding whitespace", func() {
			So(Parse("  play now\n", step).Kind, ShouldEqual, TogglePause)
			So(Parse("\tskip", step).Kind, ShouldEqual, SeekForward)
		})

		Convey("treats blank lines as empty", func() {
			So(Parse("", step).Kind, ShouldEqual, Empty)
			So(Parse("   \t", step).Kind, ShouldEqual, Empty)
		})

		Convey("keeps the raw text of unknown commands", func() {
			So(Parse(" x marks ", step), ShouldResemble, Command{Kind: Unknown, Raw: "x marks"})
			So(Parse("é", step).Kind, ShouldEqual, Unknown)
		})
	})
}

package player

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestState(t *testing.T) {
	Convey("State names match the engine's lifecycle vocabulary", t, func() {
		So(StateNull.String(), ShouldEqual, "Null")
		So(StateReady.String(), ShouldEqual, "Ready")
		So(StatePaused.String(), ShouldEqual, "Paused")
		So(StatePlaying.String(), ShouldEqual, "Playing")
		So(State(42).String(), ShouldEqual, "Unknown")
	})
}

func TestSeekFlags(t *testing.T) {
	Convey("SeekFlags", t, func() {
		flags := SeekFlush | SeekKeyUnit
		So(flags.Has(SeekFlush), ShouldBeTrue)
		So(flags.Has(SeekKeyUnit), ShouldBeTrue)
		So(SeekFlush.Has(SeekKeyUnit), ShouldBeFalse)
		So(SeekFlush.Has(SeekFlush|SeekKeyUnit), ShouldBeFalse)
	})
}

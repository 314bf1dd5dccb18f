package version

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		for _, tc := range []struct {
			a, b string
			want int
		}{
			{"1.2.3", "1.2.3", 0},
			{"v1.3.0", "1.2.9", 1},
			{"0.33.0", "0.35.1", -1},
		} {
			c, err := Compare(tc.a, tc.b)
			So(err, ShouldBeNil)
			So(c, ShouldEqual, tc.want)
		}

		Convey("Should reject malformed input", func() {
			_, err := Compare("one", "1.0.0")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Extract", t, func() {
		v, err := Extract("mpv 0.35.1 Copyright © 2000-2022 mpv/MPlayer/mplayer2 projects")
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "0.35.1")

		v, err = Extract("mpv v0.38")
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "0.38.0")

		_, err = Extract("no digits here")
		So(err, ShouldNotBeNil)
	})
}

package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/fluency/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSpeechRange(t *testing.T) {
	convey.Convey("Given a speech range", t, func() {
		r := model.SpeechRange{StartMS: 1200, EndMS: 4700}

		convey.Convey("Then its duration should be end minus start", func() {
			convey.So(r.DurationMS(), convey.ShouldEqual, 3500)
		})
	})
}

func TestLeaderboardEntryJSON(t *testing.T) {
	convey.Convey("Given a leaderboard entry", t, func() {
		played := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
		e := model.LeaderboardEntry{
			UserID:      "u1",
			Username:    "alice",
			TotalDamage: 20,
			Attempts:    2,
			BestBand:    "band_7.5",
			LastPlayed:  played,
		}

		convey.Convey("When encoding it as JSON", func() {
			raw, err := json.Marshal(e)
			convey.So(err, convey.ShouldBeNil)

			var fields map[string]any
			convey.So(json.Unmarshal(raw, &fields), convey.ShouldBeNil)

			convey.Convey("Then it should use the wire field names", func() {
				convey.So(fields["user_id"], convey.ShouldEqual, "u1")
				convey.So(fields["username"], convey.ShouldEqual, "alice")
				convey.So(fields["total_damage"], convey.ShouldEqual, 20)
				convey.So(fields["attempts"], convey.ShouldEqual, 2)
				convey.So(fields["best_band"], convey.ShouldEqual, "band_7.5")
				convey.So(fields["last_played"], convey.ShouldEqual, "2025-03-01T12:30:00Z")
			})
		})
	})
}

func TestAnalysisResultJSON(t *testing.T) {
	convey.Convey("Given an analysis result", t, func() {
		res := model.AnalysisResult{
			Transcription:    "hello world",
			WordCount:        2,
			MaxPauseDuration: 2.5,
			PauseCount:       1,
			Damage:           10,
			Feedback:         "Hesitation detected",
		}

		convey.Convey("When encoding it as JSON", func() {
			raw, err := json.Marshal(res)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every response field should be present", func() {
				var fields map[string]any
				convey.So(json.Unmarshal(raw, &fields), convey.ShouldBeNil)
				for _, k := range []string{"transcription", "word_count", "max_pause_duration", "pause_count", "damage", "feedback"} {
					convey.So(fields, convey.ShouldContainKey, k)
				}
			})
		})
	})
}

func TestUploadIdentified(t *testing.T) {
	convey.Convey("Given uploads with and without identity", t, func() {
		convey.Convey("Then only uploads with both fields should be identified", func() {
			convey.So(model.Upload{UserID: "u1", Username: "alice"}.Identified(), convey.ShouldBeTrue)
			convey.So(model.Upload{UserID: "u1"}.Identified(), convey.ShouldBeFalse)
			convey.So(model.Upload{Username: "alice"}.Identified(), convey.ShouldBeFalse)
			convey.So(model.Upload{}.Identified(), convey.ShouldBeFalse)
		})
	})
}

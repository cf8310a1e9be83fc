package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/kartscore/internal/adapters/repository"
	"github.com/okian/kartscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ids(scores []model.SessionScore) []int64 {
	out := make([]int64, len(scores))
	for i, s := range scores {
		out[i] = s.SessionID
	}
	return out
}

func TestMemoryStore_Put(t *testing.T) {
	Convey("Given a store with three slots", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(3)

		Convey("When filling slots out of order", func() {
			So(store.Put(ctx, 2, model.SessionScore{SessionID: 30}), ShouldBeNil)
			So(store.Put(ctx, 0, model.SessionScore{SessionID: 10}), ShouldBeNil)

			Convey("Then All returns filled slots in slot order", func() {
				So(store.Count(ctx), ShouldEqual, 2)
				So(ids(store.All(ctx)), ShouldResemble, []int64{10, 30})
			})

			Convey("And a filled slot cannot be overwritten", func() {
				err := store.Put(ctx, 2, model.SessionScore{SessionID: 99})
				So(errors.Is(err, repository.ErrSlotTaken), ShouldBeTrue)
				So(ids(store.All(ctx)), ShouldResemble, []int64{10, 30})
			})
		})

		Convey("When writing outside the reserved range", func() {
			Convey("Then the slot is rejected", func() {
				So(errors.Is(store.Put(ctx, 3, model.SessionScore{}), repository.ErrSlotOutOfRange), ShouldBeTrue)
				So(errors.Is(store.Put(ctx, -1, model.SessionScore{}), repository.ErrSlotOutOfRange), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then nothing is stored", func() {
				So(store.Put(cctx, 0, model.SessionScore{}), ShouldEqual, context.Canceled)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})
	})

	Convey("Given many concurrent writers", t, func() {
		ctx := context.Background()
		const n = 500
		store := repository.NewMemoryStore(n)

		var wg sync.WaitGroup
		for i := n - 1; i >= 0; i-- {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				_ = store.Put(ctx, slot, model.SessionScore{SessionID: int64(slot)})
			}(i)
		}
		wg.Wait()

		Convey("Then order follows slots, not completion", func() {
			all := store.All(ctx)
			So(len(all), ShouldEqual, n)
			for i, s := range all {
				So(s.SessionID, ShouldEqual, i)
			}
		})
	})
}

func TestMemoryStore_Ordered(t *testing.T) {
	Convey("Given scores stored in appearance order", t, func() {
		ctx := context.Background()
		rows := []model.SessionScore{
			{SessionID: 5, Track: "zengarden", Difficulty: model.Expert, FrustrationScore: 2},
			{SessionID: 2, Track: "abyss", Difficulty: model.Novice, FrustrationScore: 9},
			{SessionID: 9, Track: "abyss", Difficulty: model.Expert, FrustrationScore: 2},
			{SessionID: 1, Track: "lighthouse", Difficulty: model.SuperTux, FrustrationScore: 0},
		}
		store := repository.NewMemoryStore(len(rows))
		for i, r := range rows {
			So(store.Put(ctx, i, r), ShouldBeNil)
		}

		cases := []struct {
			order repository.Order
			want  []int64
		}{
			{repository.ByAppearance, []int64{5, 2, 9, 1}},
			{repository.BySession, []int64{1, 2, 5, 9}},
			{repository.ByTrack, []int64{2, 9, 1, 5}},
			{repository.ByDifficulty, []int64{2, 5, 9, 1}},
			{repository.ByScore, []int64{2, 5, 9, 1}},
		}

		for _, tc := range cases {
			Convey("When ordering by "+string(tc.order), func() {
				got, err := store.Ordered(ctx, tc.order)

				Convey("Then ties keep appearance order", func() {
					So(err, ShouldBeNil)
					So(ids(got), ShouldResemble, tc.want)
				})
			})
		}

		Convey("When ordering by an unknown key", func() {
			_, err := store.Ordered(ctx, repository.Order("speed"))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, repository.ErrUnknownOrder), ShouldBeTrue)
			})
		})

		Convey("When sorting the result", func() {
			got, _ := store.Ordered(ctx, repository.BySession)

			Convey("Then the store itself keeps appearance order", func() {
				So(got[0].SessionID, ShouldEqual, 1)
				So(ids(store.All(ctx)), ShouldResemble, []int64{5, 2, 9, 1})
			})
		})
	})
}

func TestParseOrder(t *testing.T) {
	Convey("Given order names", t, func() {
		o, err := repository.ParseOrder("")
		So(err, ShouldBeNil)
		So(o, ShouldEqual, repository.ByAppearance)

		o, err = repository.ParseOrder(" Score ")
		So(err, ShouldBeNil)
		So(o, ShouldEqual, repository.ByScore)

		_, err = repository.ParseOrder("random")
		So(errors.Is(err, repository.ErrUnknownOrder), ShouldBeTrue)
	})
}

package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/reena96/unseenedgeai/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new in-memory deduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it starts empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording request IDs", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the request is new", func() {
				seen := d.SeenAndRecord(context.Background(), "req-1")

				Convey("Then it is recorded as unseen", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the request was already seen", func() {
				d.SeenAndRecord(context.Background(), "req-1")
				seen := d.SeenAndRecord(context.Background(), "req-1")

				Convey("Then the duplicate is reported", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And several distinct requests arrive", func() {
				ids := []string{"req-1", "req-2", "req-3", "req-4", "req-5"}
				for _, id := range ids {
					So(d.SeenAndRecord(context.Background(), id), ShouldBeFalse)
				}

				Convey("Then all of them are remembered", func() {
					So(d.Size(), ShouldEqual, int64(len(ids)))
					for _, id := range ids {
						So(d.SeenAndRecord(context.Background(), id), ShouldBeTrue)
					}
				})
			})
		})

		Convey("When unrecording requests", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the request exists", func() {
				d.SeenAndRecord(context.Background(), "req-1")
				d.Unrecord(context.Background(), "req-1")

				Convey("Then it can be retried with the same ID", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(context.Background(), "req-1"), ShouldBeFalse)
				})
			})

			Convey("And the request does not exist", func() {
				d.Unrecord(context.Background(), "nonexistent")

				Convey("Then the size is unchanged", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})

			Convey("And a middle entry is unrecorded in bounded mode", func() {
				bounded := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10))
				for i := 0; i < 5; i++ {
					bounded.SeenAndRecord(context.Background(), fmt.Sprintf("req-%d", i))
				}
				bounded.Unrecord(context.Background(), "req-2")

				Convey("Then the remaining entries survive", func() {
					So(bounded.Size(), ShouldEqual, 4)
					So(bounded.SeenAndRecord(context.Background(), "req-2"), ShouldBeFalse)
					So(bounded.SeenAndRecord(context.Background(), "req-4"), ShouldBeTrue)
				})
			})
		})

		Convey("When the bounded capacity is exceeded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(context.Background(), fmt.Sprintf("req-%d", i))
			}

			Convey("Then the oldest entries are evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(context.Background(), "req-4"), ShouldBeTrue)
				// req-0 was evicted, so it records as new again
				So(d.SeenAndRecord(context.Background(), "req-0"), ShouldBeFalse)
			})
		})

		Convey("When many goroutines record concurrently", func() {
			d := dedupe.NewInMemoryDeduper()
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("req-%d-%d", g, i))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then every distinct ID is recorded exactly once", func() {
				So(d.Size(), ShouldEqual, 800)
			})
		})
	})
}

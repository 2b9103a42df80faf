package scoring_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/okian/crewscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const epsilon = 1e-9

func TestPercentiles(t *testing.T) {
	Convey("Given the mid-rank percentile normalizer", t, func() {
		Convey("When the cohort is empty", func() {
			So(scoring.Percentiles(nil), ShouldBeEmpty)
		})

		Convey("When the cohort has a single member", func() {
			Convey("Then the member is top of their own cohort", func() {
				So(scoring.Percentiles([]float64{0}), ShouldResemble, []float64{1.0})
				So(scoring.Percentiles([]float64{42}), ShouldResemble, []float64{1.0})
			})
		})

		Convey("When all values are distinct", func() {
			samples := []float64{7, 3, 11, 0, 5}
			got := scoring.Percentiles(samples)

			Convey("Then outputs are exactly {0, 1/(N-1), ..., 1}", func() {
				sorted := append([]float64(nil), got...)
				sort.Float64s(sorted)
				for i, p := range sorted {
					So(p, ShouldAlmostEqual, float64(i)/4, epsilon)
				}
			})

			Convey("And outputs keep input order", func() {
				So(got[0], ShouldAlmostEqual, 0.75, epsilon)
				So(got[1], ShouldAlmostEqual, 0.25, epsilon)
				So(got[2], ShouldAlmostEqual, 1.0, epsilon)
				So(got[3], ShouldAlmostEqual, 0.0, epsilon)
				So(got[4], ShouldAlmostEqual, 0.5, epsilon)
			})
		})

		Convey("When values tie", func() {
			got := scoring.Percentiles([]float64{2, 1, 2, 3})

			Convey("Then tied values share the midpoint of their block", func() {
				So(got[0], ShouldAlmostEqual, 0.5, epsilon)
				So(got[2], ShouldAlmostEqual, 0.5, epsilon)
				So(got[1], ShouldAlmostEqual, 0.0, epsilon)
				So(got[3], ShouldAlmostEqual, 1.0, epsilon)
			})
		})

		Convey("When every value is equal", func() {
			got := scoring.Percentiles([]float64{4, 4, 4})
			for _, p := range got {
				So(p, ShouldAlmostEqual, 0.5, epsilon)
			}
		})

		Convey("When comparing two distinct values in a random cohort", func() {
			rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
			samples := rng.Perm(50)
			values := make([]float64, len(samples))
			for i, v := range samples {
				values[i] = float64(v)
			}
			got := scoring.Percentiles(values)

			Convey("Then the smaller value always has the smaller percentile", func() {
				for i := range values {
					for j := range values {
						if values[i] < values[j] {
							So(got[i], ShouldBeLessThan, got[j])
						}
					}
				}
			})

			Convey("And every percentile lies in [0, 1]", func() {
				for _, p := range got {
					So(p, ShouldBeBetweenOrEqual, 0, 1)
					So(math.IsNaN(p), ShouldBeFalse)
				}
			})
		})
	})
}

package turret

import (
	"math"

	"turretcode-go/drivers/mlx90640"
)

// Target is one aim decision reduced from a complete frame.
type Target struct {
	Row   int
	Col   int
	PeakC float64
	Valid bool
}

// findTarget reduces an image to a single setpoint. The row is chosen by
// maximum row mean, then the column by the hottest pixel within that row.
// Ties break to the lowest index. The row-mean maximum, not the median of
// row means, is what locates a hot region that occupies only part of the
// scene; a median-based pick can land on a cold row.
func findTarget(img *mlx90640.Image, noiseFloorC float64) Target {
	bestRow := 0
	bestMean := math.Inf(-1)
	for r := 0; r < mlx90640.Rows; r++ {
		sum := 0.0
		for c := 0; c < mlx90640.Cols; c++ {
			sum += img.Pix[r][c]
		}
		if mean := sum / mlx90640.Cols; mean > bestMean {
			bestRow, bestMean = r, mean
		}
	}

	bestCol := 0
	peak := img.Pix[bestRow][0]
	for c := 1; c < mlx90640.Cols; c++ {
		if img.Pix[bestRow][c] > peak {
			bestCol, peak = c, img.Pix[bestRow][c]
		}
	}

	return Target{
		Row:   bestRow,
		Col:   bestCol,
		PeakC: peak,
		Valid: peak >= noiseFloorC,
	}
}

// geometry maps image columns onto turret angles. The camera and the turret
// sit at different standoff distances from the target plane, so a column is
// first projected to a lateral offset through the camera's field of view,
// then back to an angle as seen from the turret.
type geometry struct {
	fovDeg     float64
	camDist    float64
	turretDist float64
}

// colAngleDeg returns the turret angle, in degrees off boresight, that aims
// at the centre of the given image column. Column 0 is the leftmost.
func (g geometry) colAngleDeg(col int) float64 {
	frac := (float64(col)+0.5)/mlx90640.Cols - 0.5
	camRad := frac * g.fovDeg * math.Pi / 180
	lateral := math.Tan(camRad) * g.camDist
	return math.Atan2(lateral, g.turretDist) * 180 / math.Pi
}

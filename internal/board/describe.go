package board

import (
	"fmt"
	"math"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// DescribeX renders an x coordinate as a percentage toward the left or right label
func DescribeX(x float64, labels models.AxisLabels) string {
	if x >= 0 {
		return fmt.Sprintf("%d%% %s", percent(x), labels.Right)
	}
	return fmt.Sprintf("%d%% %s", percent(-x), labels.Left)
}

// DescribeY renders a y coordinate as a percentage toward the top or bottom label
func DescribeY(y float64, labels models.AxisLabels) string {
	if y <= 0 {
		return fmt.Sprintf("%d%% %s", percent(-y), labels.Top)
	}
	return fmt.Sprintf("%d%% %s", percent(y), labels.Bottom)
}

// percent rounds a non-negative fraction to a whole percentage, halves up
func percent(v float64) int {
	return int(math.Floor(v*100 + 0.5))
}

package tracking

import "github.com/go-vgo/robotgo"

// CursorLocator returns the current cursor position in screen coordinates.
type CursorLocator func() (x, y int)

// RobotgoLocator reads the cursor position through robotgo.
func RobotgoLocator() (int, int) {
	return robotgo.Location()
}

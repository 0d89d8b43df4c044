package matrix

// Joystick dead-zone bounds on the 0..1023 scale.
const (
	JoystickLow  = 350
	JoystickHigh = 650
)

// SelectArrow picks the arrow matching a joystick position. The Y axis wins
// over X; inside the dead zone the blank pattern is returned.
func SelectArrow(x, y int) (string, Pattern) {
	switch {
	case y < JoystickLow:
		return NameUp, Up
	case y > JoystickHigh:
		return NameDown, Down
	case x > JoystickHigh:
		return NameRight, Right
	case x < JoystickLow:
		return NameLeft, Left
	default:
		return NameBlank, Blank
	}
}

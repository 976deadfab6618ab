package splatsort

// CanonicalForward is the view direction of an unrotated camera.
//
// With the identity orientation, depth grows along +Z. Renderers whose view
// space looks down -Z (OpenGL convention) pass WithForwardAxis(V3(0, 0, -1)).
var CanonicalForward = Vec3{X: 0, Y: 0, Z: 1}

// ForwardVector returns the world-space view direction of a camera with
// orientation q, that is CanonicalForward rotated by q.
//
// q must be normalized; see Quat.Rotate.
func ForwardVector(q Quat) Vec3 {
	return q.Rotate(CanonicalForward)
}

// Camera is a viewpoint used by Sorter.SortFrom.
type Camera struct {
	// Orientation is the camera rotation as a unit quaternion.
	Orientation Quat

	// Position is the camera origin in the same frame as the splat
	// positions. It only affects MetricDistance: along the view axis a
	// translation shifts every depth by the same amount.
	Position Vec3
}

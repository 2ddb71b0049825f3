package geofence

import "math"

const earthRadiusMeters = 6371000

// haversineMeters returns the great-circle distance between two points in
// meters.  Accuracy is far beyond what a consumer GPS fix provides, which
// is all the exit decision needs.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

package models

// Descriptor names as they appear in output file names and workbook sheets.
const (
	I00     = "I_00"
	I45     = "I_45"
	I90     = "I_90"
	I4590   = "I_45_90"
	S0      = "S0"
	S1      = "S1"
	S2      = "S2"
	S3      = "S3"
	DOP     = "DOP"
	OA      = "OA"
	EA      = "EA"
	PD      = "PD"
	ExAmptd = "Ex_amptd"
	EyAmptd = "Ey_amptd"
)

var displayNames = map[string]string{
	DOP:     "Degree of Polarization",
	OA:      "Orientation Angle",
	EA:      "Angle of Ellipticity",
	PD:      "Phase Difference",
	ExAmptd: "Ex Amplitude",
	EyAmptd: "Ey Amplitude",
}

// DisplayName returns the human-readable title for a descriptor, or the
// name itself when it has none.
func DisplayName(name string) string {
	if d, ok := displayNames[name]; ok {
		return d
	}
	return name
}

// DescriptorNames lists the descriptors produced in the given mode, in
// presentation order.
func DescriptorNames(m Mode) []string {
	if m == DualFrame {
		return []string{I00, I45, I90, I4590, S0, S1, S2, S3, DOP, OA, EA, PD, ExAmptd, EyAmptd}
	}
	return []string{I00, I45, I90, S0, S1, S2, OA, ExAmptd, EyAmptd}
}

// OrientationNames lists the orientation images, in montage order.
func OrientationNames(m Mode) []string {
	if m == DualFrame {
		return []string{I00, I45, I90, I4590}
	}
	return []string{I00, I45, I90}
}

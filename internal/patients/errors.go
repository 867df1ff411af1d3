package patients

import "errors"

// ErrPatientNotFound is returned when no patient row matches the lookup.
var ErrPatientNotFound = errors.New("patients: patient not found")

// ErrDoctorNotFound is returned when no doctor row matches the lookup.
var ErrDoctorNotFound = errors.New("patients: doctor not found")

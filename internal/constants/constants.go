package constants

// PointsPerInch is the density of PDF user space. Page coordinates are
// expressed in points regardless of the rasterization DPI.
const PointsPerInch = 72.0

// MaxUploadBytes caps the size of a single PDF upload accepted by the
// serve API.
const MaxUploadBytes = 256 << 20

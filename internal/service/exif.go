package service

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifData holds whatever metadata could be read from an upload. Every
// field is independently optional: extraction is best-effort and a file
// with no usable EXIF yields the zero value.
type ExifData struct {
	DateTaken    *string
	CameraMake   *string
	CameraModel  *string
	GPSLatitude  *float64
	GPSLongitude *float64
	GPSAltitude  *float64
	Orientation  *int
	Auxiliary    map[string]string
}

// auxiliaryFields are the capture-condition tags collected into the
// auxiliary mapping.
var auxiliaryFields = []exif.FieldName{
	exif.ExposureTime,
	exif.FNumber,
	exif.ISOSpeedRatings,
	exif.FocalLength,
	exif.Flash,
	exif.WhiteBalance,
	exif.LensModel,
}

// extractExif reads EXIF metadata from raw image bytes. It never fails: any
// decode or tag error simply leaves the affected fields absent.
func extractExif(data []byte) ExifData {
	var out ExifData

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return out
	}

	if s, ok := exifString(x, exif.DateTimeOriginal); ok {
		out.DateTaken = normalizeExifDate(s)
	}
	if out.DateTaken == nil {
		if s, ok := exifString(x, exif.DateTime); ok {
			out.DateTaken = normalizeExifDate(s)
		}
	}

	if s, ok := exifString(x, exif.Make); ok {
		s = strings.TrimSpace(s)
		out.CameraMake = &s
	}
	if s, ok := exifString(x, exif.Model); ok {
		s = strings.TrimSpace(s)
		out.CameraModel = &s
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			out.Orientation = &v
		}
	}

	out.GPSLatitude = gpsCoordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	out.GPSLongitude = gpsCoordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)

	if tag, err := x.Get(exif.GPSAltitude); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			alt := float64(num) / float64(den)
			out.GPSAltitude = &alt
		}
	}

	aux := make(map[string]string)
	for _, field := range auxiliaryFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if s, err := tag.StringVal(); err == nil {
			aux[string(field)] = strings.TrimSpace(s)
		} else {
			aux[string(field)] = strings.Trim(tag.String(), `"`)
		}
	}
	if len(aux) > 0 {
		out.Auxiliary = aux
	}

	return out
}

// normalizeExifDate converts the EXIF "2006:01:02 15:04:05" form to an
// ISO-8601-like "2006-01-02T15:04:05". Unparseable values are dropped.
func normalizeExifDate(raw string) *string {
	t, err := time.Parse("2006:01:02 15:04:05", strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	s := t.Format("2006-01-02T15:04:05")
	return &s
}

// gpsToDecimal converts a degree/minute/second triple plus hemisphere
// letter to signed decimal degrees. South and west are negative.
func gpsToDecimal(deg, min, sec float64, ref string) float64 {
	decimal := deg + min/60 + sec/3600
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "S" || ref == "W" {
		decimal = -decimal
	}
	return decimal
}

func gpsCoordinate(x *exif.Exif, coord, refField exif.FieldName) *float64 {
	tag, err := x.Get(coord)
	if err != nil {
		return nil
	}
	refTag, err := x.Get(refField)
	if err != nil {
		return nil
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return nil
	}

	var parts [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return nil
		}
		parts[i] = float64(num) / float64(den)
	}

	decimal := gpsToDecimal(parts[0], parts[1], parts[2], ref)
	return &decimal
}

func exifString(x *exif.Exif, field exif.FieldName) (string, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	return s, true
}

package geo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// wgs84WKT is the ESRI projection string for geographic WGS84.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

var (
	wktAuthority = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]\s*\]\s*$`)
	wktRootName  = regexp.MustCompile(`^\s*(PROJCS|GEOGCS)\[\s*"([^"]+)"`)
	esriUTMZone  = regexp.MustCompile(`(?i)^(WGS_1984|NAD_1983|ETRS_1989)_UTM_Zone_(\d+)([NS]?)$`)
	esriMGAZone  = regexp.MustCompile(`(?i)^(GDA_1994|GDA2020)_MGA_Zone_(\d+)$`)
)

var esriGeographicNames = map[string]int{
	"GCS_WGS_1984":            4326,
	"GCS_GDA_1994":            4283,
	"GCS_GDA2020":             7844,
	"GCS_North_American_1983": 4269,
	"GCS_ETRS_1989":           4258,
	"GCS_NZGD_2000":           4167,
	"GCS_RGF_1993":            4171,
	"GCS_OSGB_1936":           4277,
}

var esriProjectedNames = map[string]int{
	"WGS_1984_Web_Mercator_Auxiliary_Sphere":    3857,
	"WGS_1984_Web_Mercator":                     3857,
	"WGS_84_Pseudo_Mercator":                    3857,
	"WGS_1984_World_Mercator":                   3395,
	"NZGD_2000_New_Zealand_Transverse_Mercator": 2193,
	"GDA_1994_Australia_Albers":                 3577,
	"GDA2020_Australian_Albers":                 9473,
	"GDA_1994_Geoscience_Australia_Lambert":     3112,
	"GDA2020_GA_LCC":                            7845,
	"NAD_1983_BC_Environment_Albers":            3005,
	"NAD_1983_Contiguous_USA_Albers":            5070,
	"NAD_1983_Statistics_Canada_Lambert":        3347,
	"RGF_1993_Lambert_93":                       2154,
	"British_National_Grid":                     27700,
}

// SRIDFromWKT returns the SRID described by a projection file. OGC WKT is
// read from its root AUTHORITY clause; ESRI WKT, which has none, is
// matched by coordinate system name.
func SRIDFromWKT(wkt string) (int, error) {
	wkt = strings.TrimSpace(wkt)
	if m := wktAuthority.FindStringSubmatch(wkt); m != nil {
		return strconv.Atoi(m[1])
	}

	m := wktRootName.FindStringSubmatch(wkt)
	if m == nil {
		return 0, fmt.Errorf("%w: no coordinate system name", ErrUnknownProjection)
	}
	name := strings.ReplaceAll(m[2], " ", "_")

	if m[1] == "GEOGCS" {
		if srid, ok := esriGeographicNames[name]; ok {
			return srid, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnknownProjection, name)
	}

	if srid, ok := esriProjectedNames[name]; ok {
		return srid, nil
	}
	if z := esriUTMZone.FindStringSubmatch(name); z != nil {
		zone, _ := strconv.Atoi(z[2])
		switch strings.ToUpper(z[1]) {
		case "WGS_1984":
			if strings.EqualFold(z[3], "S") {
				return 32700 + zone, nil
			}
			return 32600 + zone, nil
		case "NAD_1983":
			return 26900 + zone, nil
		case "ETRS_1989":
			return 25800 + zone, nil
		}
	}
	if z := esriMGAZone.FindStringSubmatch(name); z != nil {
		zone, _ := strconv.Atoi(z[2])
		if strings.EqualFold(z[1], "GDA2020") {
			return 7800 + zone, nil
		}
		return 28300 + zone, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownProjection, name)
}

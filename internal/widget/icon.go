package widget

// Glyphs by weatherapi.com condition code. Codes not listed render as glyphUnknown.
const (
	glyphClearDay    = "☀"
	glyphClearNight  = "☾"
	glyphPartlyDay   = "⛅"
	glyphCloud       = "☁"
	glyphFog         = "≋"
	glyphRain        = "☂"
	glyphSnow        = "❄"
	glyphThunder     = "⚡"
	glyphUnknown     = "?"
	glyphPlaceholder = "-"
)

var conditionGlyphs = map[int]string{
	1006: glyphCloud, 1009: glyphCloud,
	1030: glyphFog, 1135: glyphFog, 1147: glyphFog,

	1063: glyphRain, 1072: glyphRain, 1150: glyphRain, 1153: glyphRain,
	1168: glyphRain, 1171: glyphRain, 1180: glyphRain, 1183: glyphRain,
	1186: glyphRain, 1189: glyphRain, 1192: glyphRain, 1195: glyphRain,
	1198: glyphRain, 1201: glyphRain, 1240: glyphRain, 1243: glyphRain,
	1246: glyphRain,

	1066: glyphSnow, 1069: glyphSnow, 1114: glyphSnow, 1117: glyphSnow,
	1204: glyphSnow, 1207: glyphSnow, 1210: glyphSnow, 1213: glyphSnow,
	1216: glyphSnow, 1219: glyphSnow, 1222: glyphSnow, 1225: glyphSnow,
	1237: glyphSnow, 1249: glyphSnow, 1252: glyphSnow, 1255: glyphSnow,
	1258: glyphSnow, 1261: glyphSnow, 1264: glyphSnow,

	1087: glyphThunder, 1273: glyphThunder, 1276: glyphThunder,
	1279: glyphThunder, 1282: glyphThunder,
}

// Glyph returns the icon for a condition code. isDay follows the API: 1 for day.
// Code 0 is the placeholder condition.
func Glyph(code, isDay int) string {
	switch code {
	case 0:
		return glyphPlaceholder
	case 1000:
		if isDay == 1 {
			return glyphClearDay
		}
		return glyphClearNight
	case 1003:
		if isDay == 1 {
			return glyphPartlyDay
		}
		return glyphCloud
	}
	if g, ok := conditionGlyphs[code]; ok {
		return g
	}
	return glyphUnknown
}

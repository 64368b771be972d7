package timezone

import "strings"

// countryZones — основная зона для стран, где у сервиса есть лиды.
// Для стран с несколькими зонами берётся зона столицы или крупнейшего рынка.
var countryZones = map[string]string{
	"BR": "America/Sao_Paulo",
	"PT": "Europe/Lisbon",
	"US": "America/New_York",
	"AR": "America/Argentina/Buenos_Aires",
	"MX": "America/Mexico_City",
	"CO": "America/Bogota",
	"CL": "America/Santiago",
	"PE": "America/Lima",
	"UY": "America/Montevideo",
	"PY": "America/Asuncion",
	"BO": "America/La_Paz",
	"VE": "America/Caracas",
	"EC": "America/Guayaquil",
	"ES": "Europe/Madrid",
	"GB": "Europe/London",
	"FR": "Europe/Paris",
	"DE": "Europe/Berlin",
	"IT": "Europe/Rome",
	"CA": "America/Toronto",
	"AO": "Africa/Luanda",
	"MZ": "Africa/Maputo",
	"JP": "Asia/Tokyo",
}

// ZoneForCountry возвращает зону по ISO 3166-1 alpha-2 коду страны.
func ZoneForCountry(countryCode string) (string, bool) {
	zone, ok := countryZones[strings.ToUpper(strings.TrimSpace(countryCode))]
	return zone, ok
}

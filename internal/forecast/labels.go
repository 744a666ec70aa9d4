package forecast

import "fmt"

// Locale selects the fixed display labels.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleRU Locale = "ru"
)

// ParseLocale returns the locale for s, English for anything unrecognized.
func ParseLocale(s string) Locale {
	if Locale(s) == LocaleRU {
		return LocaleRU
	}
	return LocaleEN
}

// label holds the fixed text of one enumeration value.
type label struct {
	en string
	ru string
}

func (l label) in(locale Locale) string {
	if locale == LocaleRU {
		return l.ru
	}
	return l.en
}

var assessmentLabels = map[Assessment]label{
	Favorable:                {en: "Favorable", ru: "Благоприятные условия"},
	UnfavorableTemperature:   {en: "Unfavorable — temperature", ru: "Неблагоприятные условия - температура"},
	UnfavorableWind:          {en: "Unfavorable — wind", ru: "Неблагоприятные условия - ветер"},
	UnfavorablePrecipitation: {en: "Unfavorable — precipitation", ru: "Неблагоприятные условия - осадки"},
}

var metricLabels = map[Metric]label{
	MetricTemperature:   {en: "Temperature", ru: "Температура"},
	MetricWindSpeed:     {en: "Wind speed", ru: "Скорость ветра"},
	MetricPrecipitation: {en: "Precipitation probability", ru: "Вероятность осадков"},
}

var dayCountLabels = map[DayCount]label{
	Days1: {en: "1 day", ru: "1 день"},
	Days3: {en: "3 days", ru: "3 дня"},
	Days5: {en: "5 days", ru: "5 дней"},
}

// Label returns the display text of the verdict.
func (a Assessment) Label(locale Locale) string {
	return assessmentLabels[a].in(locale)
}

// Label returns the display text of the metric.
func (k Metric) Label(locale Locale) string {
	return metricLabels[k].in(locale)
}

// Label returns the display text of the window size.
func (d DayCount) Label(locale Locale) string {
	return dayCountLabels[d].in(locale)
}

// ChartTitle returns the title of a city's chart.
func ChartTitle(metric Metric, city string, days DayCount, locale Locale) string {
	if locale == LocaleRU {
		return fmt.Sprintf("%s в %s за %d дней", metric.Label(locale), city, days)
	}
	return fmt.Sprintf("%s in %s for %d days", metric.Label(locale), city, days)
}

// Message is a fixed user-facing message.
type Message string

const (
	MessageConnection Message = "connection"
	MessageNotFound   Message = "not_found"
	MessageData       Message = "data"
	MessageEmptyRoute Message = "empty_route"
)

var messageLabels = map[Message]label{
	MessageConnection: {en: "Could not connect to the weather service", ru: "Не удалось подключиться к API"},
	MessageNotFound:   {en: "Could not retrieve weather data for this city", ru: "Ошибка при получении данных о погоде"},
	MessageData:       {en: "Weather data for this city is incomplete", ru: "Данные о погоде для этого города неполные"},
	MessageEmptyRoute: {en: "Choose a city to display charts", ru: "Выберите город для отображения графиков"},
}

// Text returns the display text of the message.
func (m Message) Text(locale Locale) string {
	return messageLabels[m].in(locale)
}

// ErrorMessage maps a pipeline failure to its user-facing message. Connection
// failures and missing data stay distinct.
func ErrorMessage(err error) Message {
	switch ErrorClass(err) {
	case ErrConnection:
		return MessageConnection
	case ErrData:
		return MessageData
	default:
		return MessageNotFound
	}
}

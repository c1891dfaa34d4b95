package formatting

import (
	"fmt"
	"time"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatTimeRange форматирует интервал слота
func FormatTimeRange(start, end time.Time) string {
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s %s-%s", GetWeekdayShortName(int(start.Weekday())), start.Format("02.01.2006 15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", FormatDateTime(start), FormatDateTime(end))
}

// FormatMinutes склоняет количество минут
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%d %s", minutes, pluralize(minutes, "минуту", "минуты", "минут"))
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday int) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if weekday >= 0 && weekday < len(names) {
		return names[weekday]
	}
	return "?"
}

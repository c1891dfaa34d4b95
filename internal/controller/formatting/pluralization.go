package formatting

func pluralize(count int, one, few, many string) string {
	if count%10 == 1 && count%100 != 11 {
		return one
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return few
	}
	return many
}

// PluralizeSeats возвращает правильное склонение слова "место"
func PluralizeSeats(count int) string {
	return pluralize(count, "место", "места", "мест")
}

// PluralizeBookings возвращает правильное склонение слова "запись"
func PluralizeBookings(count int) string {
	return pluralize(count, "запись", "записи", "записей")
}

package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
)

// Command разобранная команда бота
type Command struct {
	Name string   // без слэша и @username
	Args []string // аргументы через пробел
	Rest string   // текст после N-го аргумента, см. Tail
}

// ParseCommand разбирает "/cmd@bot a b c". ok=false для обычного текста.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}

	return Command{
		Name: strings.ToLower(name),
		Args: fields[1:],
		Rest: strings.TrimSpace(strings.TrimPrefix(text, fields[0])),
	}, true
}

// Tail возвращает текст после первых n аргументов с сохранением пробелов
func (c Command) Tail(n int) string {
	rest := c.Rest
	for i := 0; i < n; i++ {
		rest = strings.TrimLeft(rest, " \t")
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = rest[idx:]
	}
	return strings.TrimSpace(rest)
}

// ParseID разбирает положительный идентификатор
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", service.ErrInvalidInput, raw)
	}
	return id, nil
}

// ParseSlotArgs разбирает аргументы /newslot:
// <ДД.ММ.ГГГГ> <ЧЧ:ММ> <минуты> [мест] [название...]
// Одно место означает индивидуальную консультацию.
func ParseSlotArgs(cmd Command, loc *time.Location) (service.SlotInput, error) {
	if len(cmd.Args) < 3 {
		return service.SlotInput{}, fmt.Errorf("%w: not enough arguments", service.ErrInvalidInput)
	}

	start, err := time.ParseInLocation("02.01.2006 15:04", cmd.Args[0]+" "+cmd.Args[1], loc)
	if err != nil {
		return service.SlotInput{}, fmt.Errorf("%w: bad date or time", service.ErrInvalidInput)
	}

	minutes, err := strconv.Atoi(cmd.Args[2])
	if err != nil || minutes <= 0 {
		return service.SlotInput{}, fmt.Errorf("%w: bad duration", service.ErrInvalidInput)
	}

	in := service.SlotInput{
		StartTime:            start,
		EndTime:              start.Add(time.Duration(minutes) * time.Minute),
		SlotType:             model.SlotTypeIndividual,
		MaxParticipants:      1,
		RequiresConfirmation: true,
	}

	titleFrom := 3
	if len(cmd.Args) > 3 {
		if seats, err := strconv.Atoi(cmd.Args[3]); err == nil {
			titleFrom = 4
			in.MaxParticipants = seats
			if seats != 1 {
				in.SlotType = model.SlotTypeGroup
			}
		}
	}
	in.Title = cmd.Tail(titleFrom)

	return in, nil
}

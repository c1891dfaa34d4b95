// Package meeting выдаёт комнаты видеовстреч Jitsi.
package meeting

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://meet.jit.si"
	roomPrefix     = "officehours"
)

// Jitsi формирует имена комнат и ссылки для входа. Комната создаётся
// сервером Jitsi при первом входе, поэтому обращений к API нет.
type Jitsi struct {
	baseURL string
}

func NewJitsi(baseURL string) *Jitsi {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Jitsi{baseURL: strings.TrimRight(baseURL, "/")}
}

// GenerateRoomName возвращает непредсказуемое имя комнаты
func (j *Jitsi) GenerateRoomName(bookingID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%d-%s", roomPrefix, bookingID, suffix)
}

// JoinURL ссылка на комнату с подставленным именем участника
func (j *Jitsi) JoinURL(roomRef, displayName string) string {
	link := j.baseURL + "/" + url.PathEscape(roomRef)
	if displayName == "" {
		return link
	}
	// Jitsi читает настройки из фрагмента URL
	return link + "#userInfo.displayName=" + url.QueryEscape(`"`+displayName+`"`)
}

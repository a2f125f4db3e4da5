package guard

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/iudanet/steamguard/internal/timesync"
)

// CodeAlphabet - алфавит одноразовых кодов Steam Guard.
// 26 символов: цифры и согласные без неоднозначных глифов (0/O/1/I/L/A/E/S/U)
const CodeAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

// CodeLength - длина одноразового кода в символах
const CodeLength = 5

// MaxTagLength - максимальная длина тега подписи в байтах.
// Более длинные теги молча усекаются, не отклоняются.
const MaxTagLength = 32

// Code вычисляет одноразовый код для заданного интервала.
// Чистая функция от (secret, interval): одинаковые входы всегда дают
// одинаковый 5-символьный код.
//
// Алгоритм повторяет мобильный клиент Steam: HMAC-SHA1 от big-endian
// 8-байтового интервала, динамическое усечение по младшему ниблу
// последнего байта. В отличие от RFC 4226 старший бит 32-битного
// значения НЕ маскируется: удаленный верификатор использует сырое
// значение, и совместимость с ним — единственный критерий корректности.
func Code(secret []byte, interval int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(interval))

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[19] & 0x0F
	truncated := binary.BigEndian.Uint32(sum[offset : offset+4])

	var code [CodeLength]byte
	for i := range code {
		code[i] = CodeAlphabet[truncated%uint32(len(CodeAlphabet))]
		truncated /= uint32(len(CodeAlphabet))
	}
	return string(code[:])
}

// ConfirmationKey вычисляет time hash для авторизации time-sensitive
// запросов: base64(HMAC-SHA1(identitySecret, BE64(t) || tag[:32])).
// Время передается в сырых секундах, не в 30-секундных интервалах.
func ConfirmationKey(identitySecret []byte, t int64, tag string) string {
	if len(tag) > MaxTagLength {
		tag = tag[:MaxTagLength]
	}

	msg := make([]byte, 8+len(tag))
	binary.BigEndian.PutUint64(msg[:8], uint64(t))
	copy(msg[8:], tag)

	mac := hmac.New(sha1.New, identitySecret)
	mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// DeviceID выводит идентификатор устройства из стабильного
// идентификатора аккаунта (локальный id записи) в формате
// мобильного клиента: "android:" + sha1 в форме uuid
func DeviceID(steamID string) string {
	sum := sha1.Sum([]byte(steamID))
	s := fmt.Sprintf("%x", sum)
	return fmt.Sprintf("android:%s-%s-%s-%s-%s",
		s[0:8], s[8:12], s[12:16], s[16:20], s[20:32])
}

// Generator привязывает генерацию кодов к синхронизированному времени
type Generator struct {
	timeSync *timesync.Service
}

// NewGenerator создает генератор кодов поверх сервиса времени
func NewGenerator(ts *timesync.Service) *Generator {
	return &Generator{timeSync: ts}
}

// GenerateCode вычисляет код для текущего 30-секундного интервала.
// Генерация никогда не блокируется на синхронизации времени: если
// смещение еще не установлено, запускается фоновая синхронизация,
// а код считается с тем смещением, которое есть (возможно нулевым).
// Код с устаревшим смещением может быть отвергнут сервером — это
// приемлемый внешний отказ, а не внутренняя ошибка.
func (g *Generator) GenerateCode(secret []byte) string {
	if !g.timeSync.Synced() {
		g.timeSync.SyncInBackground(false)
	}
	return Code(secret, g.timeSync.CurrentInterval())
}

package models

import "time"

// Account представляет один аккаунт Steam в локальном хранилище.
// Секреты хранятся base64-строками; на диске значения дополнительно
// зашифрованы ключом хранилища (см. internal/client/accounts).
type Account struct {
	ID             string    `json:"id"`              // UUID записи
	Name           string    `json:"name"`            // отображаемое имя аккаунта
	Username       string    `json:"username"`        // логин аккаунта Steam
	SharedSecret   string    `json:"shared_secret"`   // ключ генерации кодов (base64)
	IdentitySecret string    `json:"identity_secret"` // ключ подписи запросов (base64)
	SteamID        string    `json:"steam_id"`        // steam id после логина
	DeviceID       string    `json:"device_id"`       // идентификатор устройства
	CreatedAt      time.Time `json:"created_at"`      // время создания записи
	UpdatedAt      time.Time `json:"updated_at"`      // время последнего обновления
}

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// pkcs1PadOverhead - минимальный оверхед PKCS#1 v1.5: два префиксных
// байта, разделитель и не менее восьми байт случайного паддинга
const pkcs1PadOverhead = 11

// ErrPlaintextTooLarge indicates the password does not fit the RSA key
var ErrPlaintextTooLarge = errors.New("plaintext too large for RSA key size")

// EncryptPassword шифрует пароль под эфемерным RSA ключом, выданным
// сервером на одну попытку логина. Модуль и экспонента приходят
// hex-строками; результат — base64 от big-endian шифртекста.
//
// Паддинг PKCS#1 v1.5 должен совпадать байт-в-байт с тем, что снимает
// сервер, поэтому конструкция фиксирована: 0x00 0x02, ненулевые
// случайные байты, 0x00, UTF-8 байты пароля.
func EncryptPassword(password, modulusHex, exponentHex string) (string, error) {
	keySize := len(modulusHex) / 2

	padded, err := pkcs1Pad([]byte(password), keySize)
	if err != nil {
		return "", err
	}

	modulus, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return "", fmt.Errorf("invalid RSA modulus hex")
	}
	exponent, ok := new(big.Int).SetString(exponentHex, 16)
	if !ok {
		return "", fmt.Errorf("invalid RSA exponent hex")
	}

	m := new(big.Int).SetBytes(padded)
	c := new(big.Int).Exp(m, exponent, modulus)

	return base64.StdEncoding.EncodeToString(c.Bytes()), nil
}

// pkcs1Pad строит блок паддинга PKCS#1 v1.5 type 2 размером keySize.
// Нулевые байты из случайного источника заменяются детерминированным
// ненулевым наполнителем (не пропускаются — длина блока фиксирована).
func pkcs1Pad(data []byte, keySize int) ([]byte, error) {
	if keySize < len(data)+pkcs1PadOverhead {
		return nil, fmt.Errorf("%w: key %d bytes, need %d", ErrPlaintextTooLarge, keySize, len(data)+pkcs1PadOverhead)
	}

	padding := make([]byte, keySize-3-len(data))
	if _, err := rand.Read(padding); err != nil {
		return nil, fmt.Errorf("failed to generate padding: %w", err)
	}
	for i := range padding {
		if padding[i] == 0 {
			padding[i] = byte(i%255) + 1
		}
	}

	block := make([]byte, 0, keySize)
	block = append(block, 0x00, 0x02)
	block = append(block, padding...)
	block = append(block, 0x00)
	block = append(block, data...)

	return block, nil
}

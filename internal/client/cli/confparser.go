package cli

import (
	"regexp"

	"github.com/iudanet/steamguard/internal/client/confirm"
)

// pageParser - простейшая реализация confirm.Parser для терминального
// клиента. Грамматика страницы зависит от версии сервиса и может
// сломаться при его обновлении; ядро от этого не зависит — парсер
// живет на стороне клиента и подменяется целиком.
type pageParser struct {
	entry *regexp.Regexp
	desc  *regexp.Regexp
}

func newPageParser() confirm.Parser {
	return &pageParser{
		entry: regexp.MustCompile(`(?s)data-confid="(\d+)"[^>]*data-key="(\d+)"(.*?)mobileconf_list_entry_sep`),
		desc:  regexp.MustCompile(`(?s)<div>([^<]+)</div>`),
	}
}

// Parse извлекает записи подтверждений из мобильной HTML страницы
func (p *pageParser) Parse(html []byte) ([]confirm.Confirmation, error) {
	var confirmations []confirm.Confirmation

	for _, match := range p.entry.FindAllSubmatch(html, -1) {
		conf := confirm.Confirmation{
			ID:  string(match[1]),
			Key: string(match[2]),
		}

		// Первые три текстовых блока: заголовок, получаемое, время
		descs := p.desc.FindAllSubmatch(match[3], 3)
		if len(descs) > 0 {
			conf.Title = string(descs[0][1])
		}
		if len(descs) > 1 {
			conf.Receiving = string(descs[1][1])
		}
		if len(descs) > 2 {
			conf.Time = string(descs[2][1])
		}

		confirmations = append(confirmations, conf)
	}
	return confirmations, nil
}

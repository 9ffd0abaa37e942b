// Package nonce - файловый монотонный счётчик для подписи запросов
// торгового API биржи. Один процесс движка держит единственный
// in-flight запрос к торговому API (см. pkg/ratelimit), поэтому
// счётчик не нуждается во внутренней синхронизации - она обеспечена
// на уровне Коннектора.
package nonce

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Keeper читает, инкрементирует и сохраняет nonce в файле на диске.
// Используется как защита от перезапуска процесса: следующий nonce
// всегда больше последнего использованного, даже после падения.
type Keeper struct {
	path string
}

// NewKeeper возвращает Keeper, хранящий счётчик в <dataDir>/nonce.
// Если файл не существует, он создаётся со значением 0.
func NewKeeper(dataDir string) (*Keeper, error) {
	path := filepath.Join(dataDir, "nonce")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("0"), 0o600); err != nil {
			return nil, fmt.Errorf("create nonce file %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat nonce file %s: %w", path, err)
	}
	return &Keeper{path: path}, nil
}

// Next читает текущее значение, увеличивает на 1, сохраняет и
// возвращает новое значение. Повреждённый файл - фатальная ошибка
// конфигурации, а не повод сгенерировать новый nonce: старый nonce мог
// уже быть использован биржей, и возврат к меньшему значению приведёт
// к отказу всех последующих запросов.
func (k *Keeper) Next() (int64, error) {
	raw, err := os.ReadFile(k.path)
	if err != nil {
		return 0, fmt.Errorf("read nonce file %s: %w", k.path, err)
	}
	current, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt nonce file %s: %w", k.path, err)
	}
	next := current + 1
	if err := os.WriteFile(k.path, []byte(strconv.FormatInt(next, 10)), 0o600); err != nil {
		return 0, fmt.Errorf("write nonce file %s: %w", k.path, err)
	}
	return next, nil
}

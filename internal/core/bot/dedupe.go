package bot

import "sync"

// Deduper 以訊息 ID 過濾 webhook 重送。
// FIFO 佇列加索引集合，容量固定，淘汰與查詢皆為 O(1) 均攤。
type Deduper struct {
	mu       sync.Mutex
	capacity int
	queue    []string
	head     int
	index    map[string]bool
}

// NewDeduper 創建重複過濾器，capacity 不合法時退回 2000
func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = 2000
	}
	return &Deduper{
		capacity: capacity,
		index:    make(map[string]bool, capacity),
	}
}

// Seen 檢查並記錄訊息 ID。首次出現回傳 false，重複回傳 true。
// 空 ID 視為不可判斷，一律放行。
func (d *Deduper) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index[messageID] {
		return true
	}
	if len(d.queue) >= d.capacity {
		oldest := d.queue[d.head]
		delete(d.index, oldest)
		d.queue[d.head] = messageID
		d.head = (d.head + 1) % d.capacity
	} else {
		d.queue = append(d.queue, messageID)
	}
	d.index[messageID] = true
	return false
}

// Len 目前記錄的 ID 數
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.index)
}

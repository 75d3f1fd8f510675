package deque

// 数组大小基数
const base = 8

// ArrDeque 环形数组实现，底层数组长度向上取整到 base 的倍数，元素个数不超过 limit
type ArrDeque[T any] struct {
	arr   []T
	limit int
	start int // 队首下标
	size  int
}

var _ Deque[int] = (*ArrDeque[int])(nil)

// 工厂方法
func NewArrDeque[T any](capacity int) *ArrDeque[T] {
	if capacity <= 0 {
		capacity = base
	}
	n := capacity
	if remainder := n % base; remainder != 0 {
		n = n - remainder + base
	}
	return &ArrDeque[T]{arr: make([]T, n), limit: capacity}
}

func (ad *ArrDeque[T]) Size() int {
	return ad.size
}

func (ad *ArrDeque[T]) Capacity() int {
	return ad.limit
}

func (ad *ArrDeque[T]) index(i int) int {
	return (ad.start + i) % len(ad.arr)
}

func (ad *ArrDeque[T]) Get(i int) T {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	return ad.arr[ad.index(i)]
}

func (ad *ArrDeque[T]) Traverse(f func(i int, item T)) {
	for i := 0; i < ad.size; i++ {
		f(i, ad.arr[ad.index(i)])
	}
}

func (ad *ArrDeque[T]) AddLast(item T) bool {
	if ad.IsFull() {
		return false
	}
	ad.arr[ad.index(ad.size)] = item
	ad.size++
	return true
}

func (ad *ArrDeque[T]) removeLast() (T, bool) {
	var zero T
	if ad.IsEmpty() {
		return zero, false
	}
	ad.size--
	k := ad.index(ad.size)
	item := ad.arr[k]
	ad.arr[k] = zero // 释放引用
	return item, true
}

func (ad *ArrDeque[T]) addFirst(item T) bool {
	if ad.IsFull() {
		return false
	}
	ad.start = (ad.start - 1 + len(ad.arr)) % len(ad.arr)
	ad.arr[ad.start] = item
	ad.size++
	return true
}

func (ad *ArrDeque[T]) RemoveFirst() (T, bool) {
	var zero T
	if ad.IsEmpty() {
		return zero, false
	}
	item := ad.arr[ad.start]
	ad.arr[ad.start] = zero
	ad.start = (ad.start + 1) % len(ad.arr)
	ad.size--
	return item, true
}

// Push 队列满时先丢弃队首
func (ad *ArrDeque[T]) Push(item T) {
	if ad.IsFull() {
		ad.RemoveFirst()
	}
	ad.AddLast(item)
}

func (ad *ArrDeque[T]) IsFull() bool {
	return ad.size == ad.limit
}

func (ad *ArrDeque[T]) IsEmpty() bool {
	return ad.size == 0
}

/**
 *
 * 利用数组实现的有界双端队列，用作实时推送的帧缓存：
 * 新帧从尾部加入，队列满时从头部丢弃最旧的帧，新连接的客户端按顺序补收。
 *
 */

package deque

type Deque[T any] interface {
	// 队列的长度
	Size() int

	// 容量
	Capacity() int

	// 获取队列中对应下标的元素，0 为队首
	Get(i int) T

	// 正向遍历
	Traverse(f func(i int, item T))

	// 在队列结尾增加一个元素，队列满时返回 false
	AddLast(item T) bool

	// 在队列头部删除一个元素
	RemoveFirst() (T, bool)

	IsFull() bool

	IsEmpty() bool
}

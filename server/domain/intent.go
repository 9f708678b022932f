package domain

// Intent はクライアントから届く1つの要求です。送信者のセッションIDを必ず持ちます。
type Intent interface {
	Sender() SessionID
}

// JoinIntent は接続確立時に暗黙に発行されます。
// Subscriber はRoomがjoin処理の直前に登録するため、参加者が players_list より前のイベントを受け取ることはありません。
type JoinIntent struct {
	SessionID  SessionID
	ShipModel  string // 空ならデフォルト
	Subscriber Subscriber
	// Result にはjoinの処理結果が1度だけ送られます。容量1以上で渡してください。
	Result     chan<- error
}

type UpdatePositionIntent struct {
	SessionID SessionID
	Position  Vec3
	Rotation  Vec3
	Velocity  Vec3
}

type FireBulletIntent struct {
	SessionID SessionID
	Position  Vec3
	Velocity  Vec3
}

// LeaveIntent は切断時に1度だけ発行されます。
type LeaveIntent struct {
	SessionID SessionID
}

func (i JoinIntent) Sender() SessionID { return i.SessionID }
func (i UpdatePositionIntent) Sender() SessionID { return i.SessionID }
func (i FireBulletIntent) Sender() SessionID { return i.SessionID }
func (i LeaveIntent) Sender() SessionID { return i.SessionID }

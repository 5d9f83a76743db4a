package receipt

// Match is a similarity search hit: the receipt plus its raw vector distance.
// Lower distance means nearer for L2.
type Match struct {
	Receipt  Receipt
	Distance float64
}

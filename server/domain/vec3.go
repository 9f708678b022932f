package domain

import "math"

// Vec3 は3次元の位置・速度・回転を表す値オブジェクトです。
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Length はベクトルの長さを返します。
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize は単位ベクトルを返します。長さがほぼ0の場合はゼロベクトルを返します。
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-9 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// MaxAbs は各軸の絶対値の最大値 max(|x|,|y|,|z|) を返します。
func (v Vec3) MaxAbs() float64 {
	return math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
}

// AxisDistance は軸ごとの距離 (|dx|, |dy|, |dz|) を返します。
func AxisDistance(a, b Vec3) Vec3 {
	return Vec3{
		X: math.Abs(a.X - b.X),
		Y: math.Abs(a.Y - b.Y),
		Z: math.Abs(a.Z - b.Z),
	}
}

// Overlaps は2つの軸平行ボックス (AABB) が重なっているかを判定します。
// 全ての軸で距離がハーフエクステントの和より厳密に小さい場合のみ true を返します。
func Overlaps(a Vec3, halfA float64, b Vec3, halfB float64) bool {
	d := AxisDistance(a, b)
	limit := halfA + halfB
	return d.X < limit && d.Y < limit && d.Z < limit
}

package render

// Hexdump emits data 16 bytes per line: offset, two groups of eight bytes,
// then the printable ASCII view with non printable bytes shown as ╳.
func (o *Out) Hexdump(data []byte, base uint64) {
	for start := 0; start < len(data); start += 16 {
		o.Putf(Bright, "%8x │", base+uint64(start)).Text(" ")

		for i := start; i < start+16; i++ {
			if i%8 == 0 && i%16 != 0 {
				o.Text(" ").Put(Bright, "│")
			}
			if i < len(data) {
				o.Textf(" %02x", data[i])
			} else {
				o.Text("   ")
			}
		}

		o.Text("  ").Put(Bright, "│")
		for i := start; i < start+16; i++ {
			if i%8 == 0 && i%16 != 0 {
				o.Put(Bright, "│")
			}
			switch {
			case i >= len(data):
				o.Put(Dim, "─")
			case data[i] >= ' ' && data[i] <= '~':
				o.Text(string(rune(data[i])))
			default:
				o.Put(Dim, "╳")
			}
		}
		o.Put(Bright, "│").Nl()
	}
}

package flashcard

// Sheet is one physical page worth of cards, laid out row-major in a
// rows x cols grid. Back is nil when mirroring is disabled; otherwise it
// repeats Front with each row's columns reversed, so that printing
// double-sided lines every back cell up behind its front cell.
type Sheet struct {
	Front []Card
	Back  []Card
}

// Layout distributes the deck over sheets of rows x cols cells. Trailing
// cells of the last sheet stay zero-valued and render blank.
func Layout(deck *Deck, rows, cols int, mirror bool) []Sheet {
	perSheet := rows * cols

	var sheets []Sheet
	for start := 0; start < len(deck.Cards); start += perSheet {
		end := min(start+perSheet, len(deck.Cards))

		front := make([]Card, perSheet)
		copy(front, deck.Cards[start:end])

		sheet := Sheet{Front: front}
		if mirror {
			sheet.Back = mirrorCells(front, rows, cols)
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// mirrorCells reverses the column order within each row.
func mirrorCells(front []Card, rows, cols int) []Card {
	back := make([]Card, len(front))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			back[r*cols+c] = front[r*cols+(cols-1-c)]
		}
	}
	return back
}

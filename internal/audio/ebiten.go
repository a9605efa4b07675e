package audio

import (
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

type ebitenOutput struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	ebitenContextOnce sync.Once
	ebitenContext     *ebitaudio.Context
	ebitenSampleRate  int
)

func sharedEbitenContext(sampleRate int) (*ebitaudio.Context, error) {
	ebitenContextOnce.Do(func() {
		ebitenSampleRate = sampleRate
		ebitenContext = ebitaudio.NewContext(sampleRate)
	})
	if ebitenSampleRate != sampleRate {
		return nil, fmt.Errorf("audio: context already initialised at %d Hz (requested %d Hz)", ebitenSampleRate, sampleRate)
	}
	return ebitenContext, nil
}

func newEbitenOutput(sampleRate int, source SampleSource) (*ebitenOutput, error) {
	ctx, err := sharedEbitenContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source, framesFor(sampleRate, DefaultBufferSize))
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("audio: ebiten player: %w", err)
	}
	return &ebitenOutput{player: pl, reader: reader}, nil
}

func (o *ebitenOutput) Play()           { o.player.Play() }
func (o *ebitenOutput) Pause()          { o.player.Pause() }
func (o *ebitenOutput) IsPlaying() bool { return o.player.IsPlaying() }

func (o *ebitenOutput) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}

package service

import "sync"

// keyedMutex: un mutex por entidad (user_id) para que el
// check-then-mutate de un target sea una sección crítica sin serializar
// comandos de usuarios no relacionados detrás de la latencia de storage.
// Las entradas no se liberan; la población de un chat es acotada.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
